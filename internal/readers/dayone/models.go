package dayone

import (
	"encoding/json"
	"time"
)

// exportFile is one DayOne journal file, e.g. Journal.json.
type exportFile struct {
	Metadata map[string]any    `json:"metadata"`
	Entries  []json.RawMessage `json:"entries"`
}

// Entry is a DayOne entry. Only the fields the mapper reads are typed; the
// full object is kept in Raw for import metadata.
type Entry struct {
	UUID         string     `json:"uuid"`
	CreationDate time.Time  `json:"creationDate"`
	ModifiedDate *time.Time `json:"modifiedDate"`
	TimeZone     string     `json:"timeZone"`
	Text         string     `json:"text"`
	RichText     string     `json:"richText"`
	Tags         []string   `json:"tags"`
	Starred      bool       `json:"starred"`
	Pinned       bool       `json:"pinned"`
	IsPinned     bool       `json:"isPinned"`
	Location     *Location  `json:"location"`
	Weather      *Weather   `json:"weather"`
	Photos       []Media    `json:"photos"`
	Videos       []Media    `json:"videos"`
	Audios       []Media    `json:"audios"`

	Raw map[string]any `json:"-"`
}

func decodeEntry(raw json.RawMessage) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &e.Raw); err != nil {
		return nil, err
	}
	return &e, nil
}

type Location struct {
	PlaceName          *string  `json:"placeName"`
	LocalityName       *string  `json:"localityName"`
	AdministrativeArea *string  `json:"administrativeArea"`
	Country            *string  `json:"country"`
	Street             *string  `json:"street"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	TimeZoneName       *string  `json:"timeZoneName"`
}

type Weather struct {
	TemperatureCelsius    *float64 `json:"temperatureCelsius"`
	ConditionsDescription *string  `json:"conditionsDescription"`
	WeatherCode           *string  `json:"weatherCode"`
	WeatherServiceName    *string  `json:"weatherServiceName"`
	RelativeHumidity      *float64 `json:"relativeHumidity"`
	VisibilityKM          *float64 `json:"visibilityKM"`
	PressureMB            *float64 `json:"pressureMB"`
	WindSpeedKPH          *float64 `json:"windSpeedKPH"`
	WindBearing           *float64 `json:"windBearing"`
}

// Media is a photo, video or audio attachment of an entry.
type Media struct {
	Identifier   string     `json:"identifier"`
	MD5          string     `json:"md5"`
	Type         string     `json:"type"`
	Width        *int       `json:"width"`
	Height       *int       `json:"height"`
	Duration     *float64   `json:"duration"`
	Date         *time.Time `json:"date"`
	OrderInEntry *int       `json:"orderInEntry"`
	CameraMake   *string    `json:"cameraMake"`
	CameraModel  *string    `json:"cameraModel"`
	LensModel    *string    `json:"lensModel"`
	FocalLength  any        `json:"focalLength"`
	ExposureTime any        `json:"exposureTime"`
	FNumber      any        `json:"fnumber"`
	ISO          any        `json:"iso"`
}

type attachmentGroup struct {
	kind  mediaKind
	items []Media
}

func (e *Entry) attachments() []attachmentGroup {
	return []attachmentGroup{
		{kindPhoto, e.Photos},
		{kindVideo, e.Videos},
		{kindAudio, e.Audios},
	}
}

// placeholderRef is the reference embedded in content for this media.
func (m Media) placeholderRef() string {
	if m.MD5 != "" {
		return m.MD5
	}
	return m.Identifier
}

// mediaKind names the three attachment lists.
type mediaKind struct {
	label     string
	embed     string
	dirs      []string
	mediaType string
}

var (
	kindPhoto = mediaKind{label: "photo", embed: "image", dirs: []string{"photos"}, mediaType: "image"}
	kindVideo = mediaKind{label: "video", embed: "video", dirs: []string{"videos"}, mediaType: "video"}
	kindAudio = mediaKind{label: "audio", embed: "audio", dirs: []string{"audio", "audios"}, mediaType: "audio"}
)
