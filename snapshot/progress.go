package snapshot

import "fmt"

// Stage is a step of capture pipeline.
type Stage int

const (
	StageClone Stage = iota
	StageFonts
	StageCapture
	StageAssemble
	StageAttach
	StageSerialize
	StageEnvelope
	StageRasterize
	StageExport
)

type stageInfo struct {
	name    string
	status  string
	percent float64 // reached when stage completes
}

var stages = [...]stageInfo{
	StageClone:     {"clone", "Cloning document", 0.05},
	StageFonts:     {"fonts", "Inlining fonts", 0.20},
	StageCapture:   {"capture", "Capturing styles", 0.70},
	StageAssemble:  {"assemble", "Assembling stylesheet", 0.75},
	StageAttach:    {"attach", "Attaching stylesheet", 0.78},
	StageSerialize: {"serialize", "Serializing markup", 0.82},
	StageEnvelope:  {"envelope", "Building vector envelope", 0.85},
	StageRasterize: {"rasterize", "Rasterizing", 0.95},
	StageExport:    {"export", "Exporting document", 1.00},
}

func (s Stage) valid() bool {
	return s >= 0 && int(s) < len(stages)
}

func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stages[s].name
}

// Status returns human readable stage description.
func (s Stage) Status() string {
	if !s.valid() {
		return ""
	}
	return stages[s].status
}

// start returns percent reached before stage begins.
func (s Stage) start() float64 {
	if s <= 0 || !s.valid() {
		return 0
	}
	return stages[s-1].percent
}

func (s Stage) end() float64 {
	if !s.valid() {
		return 1
	}
	return stages[s].percent
}

// Progress is a single progress report of a run. Percent is in [0, 1] and
// never decreases during a run, it reaches 1 when run succeeds. Done and
// Total count elements during capture stage.
type Progress struct {
	Stage   Stage
	Percent float64
	Status  string
	Done    int
	Total   int
}

func (p Progress) String() string {
	if p.Stage == StageCapture && p.Total > 0 {
		return fmt.Sprintf("%3.0f%% %s (%d/%d)", p.Percent*100, p.Status, p.Done, p.Total)
	}
	return fmt.Sprintf("%3.0f%% %s", p.Percent*100, p.Status)
}
