package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/extract"
	"github.com/smartfarm/advisor/internal/llm"
	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
	"github.com/smartfarm/advisor/internal/middleware"
)

const (
	flowDiseaseDetection = "disease_detection"
	maxKeyActions        = 3
)

type DetectRequest struct {
	Image    []byte
	MIMEType string
	CropType string
	Language string
	Location *domain.Location
}

// detection carries the intermediate state between stages.
type detection struct {
	req       DetectRequest
	language  domain.Language
	disease   domain.DiseaseInfo
	treatment domain.TreatmentPlan
	localized string
}

// DetectDisease analyzes the photo, asks for a treatment plan and localizes
// a short summary. Analyze and treat failures are returned; a failed
// translation falls back to the English summary.
func (p *Pipeline) DetectDisease(ctx context.Context, req DetectRequest) (domain.AdvisoryResult, error) {
	if len(req.Image) == 0 {
		return domain.AdvisoryResult{}, ErrMissingImage
	}
	if req.MIMEType == "" {
		req.MIMEType = "image/jpeg"
	}

	started := time.Now()
	requestID := middleware.GetRequestIDFromContext(ctx)
	plan := Plan()
	state := &detection{req: req, language: domain.ResolveLanguage(req.Language)}

	for _, stage := range plan {
		stageStarted := time.Now()
		var err error
		switch stage {
		case StageAnalyze:
			err = p.analyze(ctx, state)
		case StageTreat:
			err = p.treat(ctx, state)
		case StageLocalize:
			p.localize(ctx, state)
		case StageDone:
			continue
		}
		if err != nil {
			return domain.AdvisoryResult{}, fmt.Errorf("%s stage: %w", stage, err)
		}
		logx.Debug().
			Str("request_id", requestID).
			Str("component", "advisory").
			Str("stage", string(stage)).
			Int64("duration_ms", time.Since(stageStarted).Milliseconds()).
			Msg("stage complete")
	}

	result := assemble(state)
	logx.Info().
		Str("request_id", requestID).
		Str("component", "advisory").
		Str("provider", p.generator.Name()).
		Strs("plan", stageNames(plan)).
		Str("language", result.Language).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("disease detection complete")
	return result, nil
}

func (p *Pipeline) analyze(ctx context.Context, state *detection) error {
	result, err := p.generator.Generate(ctx, llm.Prompt{
		Operation: llm.OperationAnalyze,
		Parts: []llm.Part{
			llm.MediaPart(state.req.Image, state.req.MIMEType),
			llm.TextPart(analyzePrompt(state.req.CropType)),
		},
	}, analyzeConfig)
	if err != nil {
		return err
	}
	state.disease = extract.Disease(extract.Extract(result.Text(), extract.ShapeDisease))
	return nil
}

func (p *Pipeline) treat(ctx context.Context, state *detection) error {
	result, err := p.generator.Generate(ctx, llm.Prompt{
		Operation: llm.OperationTreat,
		Parts: []llm.Part{llm.TextPart(treatmentPrompt(
			diseaseName(state.disease),
			severityOf(state.disease),
			state.req.CropType,
		))},
	}, treatConfig)
	if err != nil {
		return err
	}

	if strings.TrimSpace(result.Text()) == "" {
		metrics.RecordStageFallback(flowDiseaseDetection, string(StageTreat), "empty_text")
		state.treatment = fallbackTreatment()
		return nil
	}
	state.treatment = extract.Treatment(extract.Extract(result.Text(), extract.ShapeTreatment))
	return nil
}

func (p *Pipeline) localize(ctx context.Context, state *detection) {
	summary := baseSummary(state.disease, state.treatment)
	state.localized = summary
	if state.language.Code == domain.BaseLanguage {
		return
	}

	result, err := p.generator.Generate(ctx, llm.Prompt{
		Operation: llm.OperationTranslate,
		Parts: []llm.Part{
			llm.TextPart(translationInstructions(state.language)),
			llm.TextPart(summary),
		},
	}, translateConfig)
	if err != nil {
		metrics.RecordStageFallback(flowDiseaseDetection, string(StageLocalize), "call_error")
		logx.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestIDFromContext(ctx)).
			Str("stage", string(StageLocalize)).
			Str("language", state.language.Code).
			Msg("translation failed, using base summary")
		return
	}
	if translated := strings.TrimSpace(result.Text()); translated != "" {
		state.localized = translated
		return
	}
	metrics.RecordStageFallback(flowDiseaseDetection, string(StageLocalize), "empty_text")
}

// baseSummary is the English text that gets translated.
func baseSummary(disease domain.DiseaseInfo, treatment domain.TreatmentPlan) string {
	actions := "No immediate actions available"
	if len(treatment.Immediate) > 0 {
		immediate := treatment.Immediate
		if len(immediate) > maxKeyActions {
			immediate = immediate[:maxKeyActions]
		}
		actions = strings.Join(immediate, "\n")
	}
	return fmt.Sprintf("Disease: %s\nSeverity: %s\n\nKey Actions:\n%s", diseaseName(disease), severityOf(disease), actions)
}

func assemble(state *detection) domain.AdvisoryResult {
	confidence := state.disease.Confidence
	if confidence == 0 {
		confidence = 70
	}
	return domain.AdvisoryResult{
		Disease:      diseaseName(state.disease),
		Confidence:   confidence,
		Severity:     severityOf(state.disease),
		AffectedArea: state.disease.AffectedArea,
		Symptoms:     state.disease.Symptoms,
		Treatment: domain.Treatment{
			Immediate:  orDefaultList(state.treatment.Immediate, "Consult agricultural extension officer"),
			Preventive: orDefaultList(state.treatment.Preventive, "Monitor crops regularly"),
			Organic:    orDefaultList(state.treatment.Organic, "Use organic methods when possible"),
		},
		EstimatedLoss: orDefault(state.treatment.EstimatedLoss, "Cannot estimate"),
		Timeline:      orDefault(state.treatment.Timeline, "Varies depending on condition"),
		LocalizedText: state.localized,
		Language:      state.language.Code,
	}
}

func fallbackTreatment() domain.TreatmentPlan {
	return domain.TreatmentPlan{
		Immediate: []string{
			"Isolate affected plants to prevent spread",
			"Remove severely infected parts carefully",
			"Consult with local agricultural extension officer",
		},
		Preventive: []string{
			"Use disease-resistant crop varieties",
			"Practice crop rotation",
			"Maintain proper field sanitation",
		},
		Organic: []string{
			"Apply neem-based organic pesticides",
			"Use compost to improve soil health",
			"Encourage beneficial insects",
		},
		EstimatedLoss: "20-40% if left untreated",
		Timeline:      "2-4 weeks for recovery with treatment",
	}
}

func diseaseName(info domain.DiseaseInfo) string {
	return orDefault(info.Disease, "Unknown disease")
}

func severityOf(info domain.DiseaseInfo) domain.Severity {
	if info.Severity == "" {
		return domain.SeverityModerate
	}
	return info.Severity
}

func orDefaultList(values []string, fallback string) []string {
	if len(values) == 0 {
		return []string{fallback}
	}
	return values
}
