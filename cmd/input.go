package cmd

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Input contains the input for the root command
type Input struct {
	resourceGroup string
	location      string
	acrName       string
	envName       string
	jobName       string
	imageTag      string

	contextDir string
	dockerfile string
	buildArgs  []string
	noBuild    bool

	schedule    string
	cpu         string
	memory      string
	registrySKU string

	envs       []string
	envfile    string
	secrets    []string
	secretfile string

	historySize int
	verify      bool
	watch       bool

	dryrun   bool
	verbose  bool
	jsonLogs bool
}

func (i *Input) resolve(path string) string {
	basedir, err := filepath.Abs(i.contextDir)
	if err != nil {
		log.Fatal(err)
	}
	if path == "" {
		return path
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(basedir, path)
	}
	return path
}

// ContextDir returns the absolute path of the image build context
func (i *Input) ContextDir() string {
	return i.resolve(".")
}

// Envfile returns the path to the job environment file
func (i *Input) Envfile() string {
	return i.resolve(i.envfile)
}

// Secretfile returns the path to the job secrets file
func (i *Input) Secretfile() string {
	return i.resolve(i.secretfile)
}
