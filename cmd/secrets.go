package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

type secrets map[string]string

// newSecrets resolves NAME=value pairs into job secrets. A bare NAME is
// looked up in the current environment and, failing that, prompted for with
// echo disabled so the value stays out of shell history and logs.
func newSecrets(secretList []string) secrets {
	s := make(secrets)
	for _, secretPair := range secretList {
		secretPairParts := strings.SplitN(secretPair, "=", 2)
		name := secretPairParts[0]
		if _, ok := s[name]; ok {
			log.Errorf("Secret %s is already defined", name)
		}
		if len(secretPairParts) == 2 {
			s[name] = secretPairParts[1]
		} else if env, ok := os.LookupEnv(name); ok && env != "" {
			s[name] = env
		} else {
			fmt.Printf("Provide value for '%s': ", name)
			val, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				log.Errorf("failed to read input: %v", err)
				os.Exit(1)
			}
			s[name] = string(val)
		}
	}
	return s
}
