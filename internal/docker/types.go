package docker

// State classifies a container's running condition from its raw status text.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateOther   State = "other"
)

// Container is one row of a container listing. Records are built fresh on
// every listing call and never cached; two calls may disagree about the same
// underlying container if its state changed in between.
type Container struct {
	ID     string
	Name   string
	State  State
	Status string // raw status text, e.g. "Up 3 hours"
	Image  string
}

// Running reports whether the container was up at listing time.
func (c Container) Running() bool {
	return c.State == StateRunning
}

// Image is one row of an image listing. Size and Created stay in Docker's
// human-readable form; nothing downstream computes with them.
type Image struct {
	Repository string
	Tag        string
	Size       string
	Created    string
}

// StatsSample is an instantaneous resource reading for one container. Not
// retained across calls.
type StatsSample struct {
	Name       string
	CPUPercent float64
	MemPercent float64
	MemUsage   string
}
