package stores

import (
	"collabdoc-server/core"
	"collabdoc-server/stores/filesystem"
	"collabdoc-server/stores/memory"
	"collabdoc-server/stores/sqlite"
	"os"

	"github.com/sirupsen/logrus"
)

// GetFileStore selects the blob store backend from the STORAGE_TYPE
// environment variable. Documents always live in memory; only uploaded
// files have pluggable storage.
func GetFileStore() core.FileStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.FileStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		storageField["basePath"] = basePath
		store = filesystem.NewFileStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "collabdoc.db"
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewFileStore(dataSourceName)
	default:
		store = memory.NewFileStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use file storage")
	return store
}
