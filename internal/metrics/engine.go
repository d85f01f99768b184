package metrics

import (
	"engagement-service/internal/entity"
	"engagement-service/internal/scoring"
)

// SampleFromRecord flattens a face record for the batch metrics.
func SampleFromRecord(r entity.DetectionRecord) Sample {
	m := r.Engagement.Metrics()
	return Sample{
		Engagement:    m.EngagementScore,
		EyeOpenness:   m.EyeOpenness,
		HeadPose:      m.HeadPoseScore,
		Yaw:           m.Yaw,
		Pitch:         m.Pitch,
		IsLive:        r.Liveness.IsLive,
		LivenessScore: r.Liveness.LivenessScore,
		Class:         r.Class.Label,
	}
}

// Compute builds the batch report over records. It is pure: the same multiset
// of records and thresholds always yields the same report. liveness_threshold
// is echoed only; is_live was fixed when each record was scored.
func Compute(records []entity.DetectionRecord, thresholds entity.BatchThresholds) entity.BatchReport {
	samples := make([]Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, SampleFromRecord(r))
	}
	return ComputeSamples(samples, thresholds)
}

func ComputeSamples(samples []Sample, thresholds entity.BatchThresholds) entity.BatchReport {
	report := entity.BatchReport{
		EngagementStats:        entity.Stats{},
		LivenessStats:          entity.Stats{},
		AdditionalMetrics:      entity.Stats{},
		EngagementDistribution: map[string]int{},
		ThresholdsUsed:         thresholds,
	}
	if len(samples) == 0 {
		return report
	}

	report.ConfusionMatrix = BuildConfusionMatrix(samples, thresholds.EngagementThreshold)
	report.ClassificationMetrics = Classify(report.ConfusionMatrix)
	report.TotalFramesProcessed = len(samples)

	// every class is reported, zero counts included
	for _, label := range scoring.EngagementLabels() {
		report.EngagementDistribution[label] = 0
	}

	var (
		engagement = make([]float64, len(samples))
		liveness   = make([]float64, len(samples))
		eyes       = make([]float64, len(samples))
		headPose   = make([]float64, len(samples))
		yaw        = make([]float64, len(samples))
		pitch      = make([]float64, len(samples))
		live       int
	)
	for i, s := range samples {
		engagement[i] = s.Engagement
		liveness[i] = s.LivenessScore
		eyes[i] = s.EyeOpenness
		headPose[i] = s.HeadPose
		yaw[i] = s.Yaw
		pitch[i] = s.Pitch
		if s.IsLive {
			live++
		}
		if s.Class != "" {
			report.EngagementDistribution[s.Class]++
		}
	}

	e := Describe(engagement)
	report.EngagementStats = entity.Stats{
		"avg_engagement":    Round(e.Mean, statPlaces),
		"std_engagement":    Round(e.Std, statPlaces),
		"min_engagement":    Round(e.Min, statPlaces),
		"max_engagement":    Round(e.Max, statPlaces),
		"median_engagement": Round(e.Median, statPlaces),
		"percentile_25":     Round(e.P25, statPlaces),
		"percentile_75":     Round(e.P75, statPlaces),
	}

	l := Describe(liveness)
	report.LivenessStats = entity.Stats{
		"avg_liveness":         Round(l.Mean, statPlaces),
		"std_liveness":         Round(l.Std, statPlaces),
		"min_liveness":         Round(l.Min, statPlaces),
		"max_liveness":         Round(l.Max, statPlaces),
		"median_liveness":      Round(l.Median, statPlaces),
		"live_faces_count":     float64(live),
		"non_live_faces_count": float64(len(samples) - live),
	}

	eye := Describe(eyes)
	head := Describe(headPose)
	report.AdditionalMetrics = entity.Stats{
		"avg_eye_openness": Round(eye.Mean, statPlaces),
		"std_eye_openness": Round(eye.Std, statPlaces),
		"avg_head_pose":    Round(head.Mean, statPlaces),
		"std_head_pose":    Round(head.Std, statPlaces),
		"avg_yaw":          Round(Describe(absAll(yaw)).Mean, statPlaces),
		"avg_pitch":        Round(Describe(absAll(pitch)).Mean, statPlaces),
	}

	return report
}
