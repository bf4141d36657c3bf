package stores

import (
	"os"

	"codearena-realtime/core"
	"codearena-realtime/stores/aws"
	"codearena-realtime/stores/filesystem"
	"codearena-realtime/stores/memory"
	"codearena-realtime/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore selects the blob storage backend from the environment.
// Production deployments set STORAGE_TYPE; the in-memory fallback
// loses everything on restart and exists for credential-less
// development only.
func GetStore() core.FileStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.FileStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "codearena.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
		logrus.Warn("Using in-memory storage; workspace files are lost on restart. Not for production.")
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
