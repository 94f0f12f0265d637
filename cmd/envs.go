package cmd

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// parseEnvs fills envs from NAME=value pairs. A bare NAME copies the value
// from the current process environment.
func parseEnvs(env []string, envs map[string]string) {
	for _, envVar := range env {
		e := strings.SplitN(envVar, "=", 2)
		if len(e) == 2 {
			envs[e[0]] = e[1]
		} else {
			envs[e[0]] = os.Getenv(e[0])
		}
	}
}

// readEnvs loads a dotenv file into envs, reporting whether the file exists.
func readEnvs(path string, envs map[string]string) bool {
	if _, err := os.Stat(path); err == nil {
		env, err := godotenv.Read(path)
		if err != nil {
			log.Fatalf("Error loading from %s: %v", path, err)
		}
		for k, v := range env {
			envs[k] = v
		}
		return true
	}
	return false
}
