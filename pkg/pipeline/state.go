package pipeline

// Stage is a position in the pipeline state machine:
//
//	Raw -> CroppedAndMasked -> Night
//	                        -> CloudChecked -> Cloudy
//	                                        -> Cleaned -> BluenessComputed
//
// Failed is entered from any stage on error.
type Stage int

const (
	StageRaw Stage = iota
	StageCroppedAndMasked
	StageNight
	StageCloudChecked
	StageCloudy
	StageCleaned
	StageBluenessComputed
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageRaw:
		return "raw"
	case StageCroppedAndMasked:
		return "cropped_and_masked"
	case StageNight:
		return "night"
	case StageCloudChecked:
		return "cloud_checked"
	case StageCloudy:
		return "cloudy"
	case StageCleaned:
		return "cleaned"
	case StageBluenessComputed:
		return "blueness_computed"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible
func (s Stage) Terminal() bool {
	switch s {
	case StageNight, StageCloudy, StageBluenessComputed, StageFailed:
		return true
	}
	return false
}

// Artifact names in the order they are produced
const (
	ArtifactCropped   = "cropped"
	ArtifactGeoMask   = "geo-mask"
	ArtifactSeaOnly   = "sea-only"
	ArtifactCloudMask = "cloud-mask"
	ArtifactCleaned   = "cleaned"
	ArtifactBlueness  = "blueness"
)
