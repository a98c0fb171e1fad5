// Package metric keeps the registry of named metrics treetop samples and the
// provider that answers value queries against the most recent fetch.
//
// Every metric is addressed by an ID. The static IDs below are known at
// compile time; columns and meters defined in configuration are appended
// with Registry.Register and receive IDs past StaticCount. IDs are never
// reused or removed, only disabled.
//
// A refresh cycle enables the metrics it needs, calls Provider.Fetch once,
// then reads values with Value, Iterate and Instance. All reads between two
// fetches observe the same snapshot.
package metric

// ID identifies a metric in a Registry.
type ID int

// Static metric IDs.
const (
	TargetMetric ID = iota
	TargetTimestamp
	TargetValueset
	TrainingElapsed
	TrainingMutualInfo
	TrainingMissing
	TrainingVariance
	TrainingFeatures
	TrainingCount
	TrainingInterval
	TrainingWindow
	SamplingCount
	SamplingInterval
	SamplingElapsed
	ConfidenceScore
	ImportanceType
	ModelFeatures
	ModelImportance
	ModelMutualInfo
	ModelElapsed
	ShapFeatures
	ShapValues
	ShapMutualInfo
	ShapElapsed
	OptElapsed
	OptMinFeatures
	OptMinChange
	OptMinDirection
	OptMaxFeatures
	OptMaxChange
	OptMaxDirection
	ProcessingState

	HinvNCPU
	Uptime
	UnameSysname
	UnameRelease
	UnameMachine
	UnameDistro
	PMCDHostname

	// StaticCount is the number of static IDs; dynamic IDs start here.
	StaticCount
)

const serverPrefix = "mmv.treetop.server."

var staticNames = [StaticCount]string{
	TargetMetric:       serverPrefix + "target.metric",
	TargetTimestamp:    serverPrefix + "target.timestamp",
	TargetValueset:     serverPrefix + "target.valueset",
	TrainingElapsed:    serverPrefix + "training.elapsed_time",
	TrainingMutualInfo: serverPrefix + "training.mutual_information",
	TrainingMissing:    serverPrefix + "training.missing_values",
	TrainingVariance:   serverPrefix + "training.low_variance",
	TrainingFeatures:   serverPrefix + "training.total_features",
	TrainingCount:      serverPrefix + "training.count",
	TrainingInterval:   serverPrefix + "training.interval",
	TrainingWindow:     serverPrefix + "training.window",
	SamplingCount:      serverPrefix + "sampling.count",
	SamplingInterval:   serverPrefix + "sampling.interval",
	SamplingElapsed:    serverPrefix + "sampling.elapsed_time",
	ConfidenceScore:    serverPrefix + "inferring.output.confidence",
	ImportanceType:     serverPrefix + "explaining.model.importance_type",
	ModelFeatures:      serverPrefix + "explaining.model.features",
	ModelImportance:    serverPrefix + "explaining.model.importance",
	ModelMutualInfo:    serverPrefix + "explaining.model.mutual_information",
	ModelElapsed:       serverPrefix + "explaining.model.elapsed_time",
	ShapFeatures:       serverPrefix + "explaining.shap.features",
	ShapValues:         serverPrefix + "explaining.shap.values",
	ShapMutualInfo:     serverPrefix + "explaining.shap.mutual_information",
	ShapElapsed:        serverPrefix + "explaining.shap.elapsed_time",
	OptElapsed:         serverPrefix + "optimising.elapsed_time",
	OptMinFeatures:     serverPrefix + "optimising.minima.features",
	OptMinChange:       serverPrefix + "optimising.minima.change",
	OptMinDirection:    serverPrefix + "optimising.minima.direction",
	OptMaxFeatures:     serverPrefix + "optimising.maxima.features",
	OptMaxChange:       serverPrefix + "optimising.maxima.change",
	OptMaxDirection:    serverPrefix + "optimising.maxima.direction",
	ProcessingState:    serverPrefix + "processing.state",

	HinvNCPU:     "hinv.ncpu",
	Uptime:       "kernel.all.uptime",
	UnameSysname: "kernel.uname.sysname",
	UnameRelease: "kernel.uname.release",
	UnameMachine: "kernel.uname.machine",
	UnameDistro:  "kernel.uname.distro",
	PMCDHostname: "pmcd.hostname",
}

// StaticName returns the source-side name of a static metric, or "" for a
// dynamic or out of range ID.
func StaticName(id ID) string {
	if id < 0 || id >= StaticCount {
		return ""
	}
	return staticNames[id]
}
