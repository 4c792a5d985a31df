package advisory

type Stage string

const (
	StageAnalyze  Stage = "analyze"
	StageTreat    Stage = "treat"
	StageLocalize Stage = "localize"
	StageDone     Stage = "done"
)

// Plan is the fixed stage order of disease detection.
func Plan() []Stage {
	return []Stage{StageAnalyze, StageTreat, StageLocalize, StageDone}
}

func stageNames(stages []Stage) []string {
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, string(stage))
	}
	return names
}
