package config

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files. Missing files are
// skipped and variables already present in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		log.Printf("config: skip env file %s: %v", path, err)
	}
}
