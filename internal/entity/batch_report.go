package entity

const (
	DefaultEngagementThreshold = 50.0
	DefaultLivenessThreshold   = 20.0
)

type BatchThresholds struct {
	EngagementThreshold float64 `json:"engagement_threshold"`
	LivenessThreshold   float64 `json:"liveness_threshold"`
}

func DefaultThresholds() BatchThresholds {
	return BatchThresholds{
		EngagementThreshold: DefaultEngagementThreshold,
		LivenessThreshold:   DefaultLivenessThreshold,
	}
}

type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
	Total         int `json:"total"`
}

type ClassificationMetrics struct {
	Accuracy          float64 `json:"accuracy"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1Score           float64 `json:"f1_score"`
	Specificity       float64 `json:"specificity"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	FalseNegativeRate float64 `json:"false_negative_rate"`
	MCC               float64 `json:"mcc"`
}

// Stats is a named group of descriptive statistics. Empty for an empty sample.
type Stats map[string]float64

type BatchReport struct {
	ConfusionMatrix        ConfusionMatrix       `json:"confusion_matrix"`
	ClassificationMetrics  ClassificationMetrics `json:"classification_metrics"`
	EngagementStats        Stats                 `json:"engagement_stats"`
	LivenessStats          Stats                 `json:"liveness_stats"`
	AdditionalMetrics      Stats                 `json:"additional_metrics"`
	EngagementDistribution map[string]int        `json:"engagement_distribution"`
	ThresholdsUsed         BatchThresholds       `json:"thresholds_used"`
	TotalFramesProcessed   int                   `json:"total_frames_processed"`
	FramesReceived         int                   `json:"frames_received"`
	FramesSkipped          int                   `json:"frames_skipped"`
}
