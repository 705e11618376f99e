package execute

import (
	"fmt"

	"github.com/alessio/shellescape"
)

const (
	DefaultShell            = "bash"
	DefaultLauncherJar      = "/junit-console-launcher.jar"
	DefaultClasspathCommand = "gradle -q printClassPath"
	DefaultEngineID         = "docker-engine"
)

// Launcher describes how the console launcher is invoked inside a
// container.
type Launcher struct {
	Shell            string `yaml:"shell"`
	Jar              string `yaml:"jar"`
	ClasspathCommand string `yaml:"classpath_command"`
	// EngineID is the test engine excluded from the nested run so the
	// launcher does not dispatch to containers again.
	EngineID string `yaml:"engine_id"`
}

func DefaultLauncher() Launcher {
	return Launcher{
		Shell:            DefaultShell,
		Jar:              DefaultLauncherJar,
		ClasspathCommand: DefaultClasspathCommand,
		EngineID:         DefaultEngineID,
	}
}

// LauncherCommand returns the argv that runs the unit selected by fqn and
// prints the summary block.
func LauncherCommand(l Launcher, fqn string) []string {
	script := fmt.Sprintf("java -jar %s -cp $(%s) -E=%q --details=summary --disable-banner -m %s",
		l.Jar, l.ClasspathCommand, l.EngineID, shellescape.Quote(fqn))
	return []string{l.Shell, "-c", script}
}
