package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./journalport.db"

	// DefaultMediaRoot is where the local blob store keeps media files
	DefaultMediaRoot = "./media"

	DefaultExportDir     = "./exports"
	DefaultImportTempDir = "./tmp/imports"
)
