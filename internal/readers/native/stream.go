package native

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

const (
	journalsKey = "journals"
	momentsKey  = "moments"
)

func (r *Reader) readStreaming(ctx context.Context, manifestPath, mediaRoot string) (*readers.Archive, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, transfer.NewFormatError("cannot read data.json", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, transfer.NewFormatError("data.json must be a JSON object", err)
	}

	rest := map[string]json.RawMessage{}
	var journals, entries, moments int
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := readKey(dec)
		if err != nil {
			return nil, transfer.NewFormatError("malformed data.json", err)
		}

		switch key {
		case journalsKey:
			err = eachElement(dec, func() error {
				var c entryCounter
				if derr := dec.Decode(&c); derr != nil && !isTypeError(derr) {
					return derr
				}
				journals++
				entries += len(c.Entries)
				return nil
			})
		case momentsKey:
			err = eachElement(dec, func() error {
				if derr := skipValue(dec); derr != nil {
					return derr
				}
				moments++
				return nil
			})
		default:
			var raw json.RawMessage
			err = dec.Decode(&raw)
			rest[key] = raw
		}
		if err != nil {
			return nil, transfer.NewFormatError(fmt.Sprintf("malformed %q in data.json", key), err)
		}
	}

	var header transfer.Export
	packed, err := json.Marshal(rest)
	if err != nil {
		return nil, transfer.NewFormatError("malformed data.json header", err)
	}
	if err := json.Unmarshal(packed, &header); err != nil {
		return nil, transfer.NewFormatError("malformed data.json header", err)
	}
	if err := checkHeader(&header); err != nil {
		return nil, err
	}
	header.Journals = nil
	header.Moments = nil

	archive := readers.NewArchive(readers.FormatNative, &header, mediaRoot,
		streamIter[transfer.Journal](manifestPath, journalsKey),
		streamIter[transfer.Moment](manifestPath, momentsKey),
	)
	archive.JournalCount = journals
	archive.EntryCount = entries
	archive.MomentCount = moments
	return archive, nil
}

// streamIter re-opens the manifest and yields the elements of the array
// stored under key, one at a time.
func streamIter[T any](path, key string) readers.IterFunc[T] {
	return func(ctx context.Context, yield func(readers.Item[T]) error) error {
		f, err := os.Open(path)
		if err != nil {
			return transfer.NewFormatError("cannot read data.json", err)
		}
		defer f.Close()

		dec := json.NewDecoder(bufio.NewReader(f))
		found, err := seekKey(dec, key)
		if err != nil {
			return transfer.NewFormatError("malformed data.json", err)
		}
		if !found {
			return nil
		}

		index := 0
		errStop := errors.New("stop")
		var yieldErr error
		err = eachElement(dec, func() error {
			if err := ctx.Err(); err != nil {
				yieldErr = err
				return errStop
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			if err := yield(decodeItem[T](index, raw)); err != nil {
				yieldErr = err
				return errStop
			}
			index++
			return nil
		})
		if errors.Is(err, errStop) {
			return yieldErr
		}
		if err != nil {
			return transfer.NewFormatError(fmt.Sprintf("malformed %q in data.json", key), err)
		}
		return nil
	}
}

// seekKey positions dec right before the value of the top-level key.
func seekKey(dec *json.Decoder, key string) (bool, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return false, err
	}
	for dec.More() {
		k, err := readKey(dec)
		if err != nil {
			return false, err
		}
		if k == key {
			return true, nil
		}
		if err := skipValue(dec); err != nil {
			return false, err
		}
	}
	return false, nil
}

// eachElement calls fn once per element of the array at the decoder's
// position. fn must consume exactly one value. A null array is empty.
func eachElement(dec *json.Decoder, fn func() error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("expected an array, got %v", tok)
	}
	for dec.More() {
		if err := fn(); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// skipValue consumes one value without buffering it.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected an object key, got %v", tok)
	}
	return key, nil
}

func isTypeError(err error) bool {
	var te *json.UnmarshalTypeError
	return errors.As(err, &te)
}
