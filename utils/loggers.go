package utils

import (
	"log"
	"os"
)

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

var (
	infoLogger    = log.New(os.Stdout, "INFO: ", logFlags)
	warningLogger = log.New(os.Stdout, "WARNING: ", logFlags)
	errorLogger   = log.New(os.Stderr, "ERROR: ", logFlags)
)

// InitLogger rebuilds the level writers; main calls it once at startup so
// redirected streams are picked up.
func InitLogger() {
	infoLogger = log.New(os.Stdout, "INFO: ", logFlags)
	warningLogger = log.New(os.Stdout, "WARNING: ", logFlags)
	errorLogger = log.New(os.Stderr, "ERROR: ", logFlags)
}

func LogInfo(message string) {
	infoLogger.Println(message)
}

// LogWarning is for degraded-but-continuing outcomes, like a blob a
// traversal skipped over.
func LogWarning(message string) {
	warningLogger.Println(message)
}

func LogError(message string, err error) {
	if err != nil {
		errorLogger.Printf("%s: %v", message, err)
	} else {
		errorLogger.Println(message)
	}
}
