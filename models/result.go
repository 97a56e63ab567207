package models

import (
	"encoding/json"
	"fmt"
)

// DifferentialDiagnosis is the pattern/pathology/evidence triple of a
// professional analysis.
type DifferentialDiagnosis struct {
	Pattern   string `json:"pattern"`
	Pathology string `json:"pathology"`
	Evidence  string `json:"evidence"`
}

// ProfessionalSuggestion carries the richer clinical fields returned
// in professional mode.
type ProfessionalSuggestion struct {
	Name              string `json:"name"`
	Reason            string `json:"reason"`
	Pharmacology      string `json:"pharmacology"`
	Contraindications string `json:"contraindications"`
	Dosage            string `json:"dosage,omitempty"`
	Source            string `json:"source,omitempty"`
}

// GeneralSuggestion is the simpler wellness-mode counterpart.
type GeneralSuggestion struct {
	Name    string `json:"name"`
	Reason  string `json:"reason"`
	Usage   string `json:"usage,omitempty"`
	Caution string `json:"caution,omitempty"`
}

// FolkRemedy is an optional traditional home remedy.
type FolkRemedy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Caution     string `json:"caution,omitempty"`
}

// LifestyleAdvice groups diet, sleep and exercise recommendations.
type LifestyleAdvice struct {
	Diet     []string `json:"diet"`
	Sleep    []string `json:"sleep"`
	Exercise []string `json:"exercise"`
}

// WellnessProfile is the title/summary header of a general analysis.
type WellnessProfile struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ProfessionalAnalysis is the professional-mode result variant.
type ProfessionalAnalysis struct {
	AnalysisMode          Mode                     `json:"analysisMode"`
	DifferentialDiagnosis DifferentialDiagnosis    `json:"differentialDiagnosis"`
	Rationale             string                   `json:"rationale"`
	TreatmentPrinciple    string                   `json:"treatmentPrinciple"`
	HerbSuggestions       []ProfessionalSuggestion `json:"herbSuggestions"`
	KampoSuggestions      []ProfessionalSuggestion `json:"kampoSuggestions"`
	SupplementSuggestions []ProfessionalSuggestion `json:"supplementSuggestions"`
	FolkRemedies          []FolkRemedy             `json:"folkRemedies,omitempty"`
	LifestyleAdvice       LifestyleAdvice          `json:"lifestyleAdvice"`
	Precautions           []string                 `json:"precautions"`
}

// GeneralAnalysis is the general-mode result variant.
type GeneralAnalysis struct {
	AnalysisMode          Mode                `json:"analysisMode"`
	WellnessProfile       WellnessProfile     `json:"wellnessProfile"`
	HerbSuggestions       []GeneralSuggestion `json:"herbSuggestions"`
	SupplementSuggestions []GeneralSuggestion `json:"supplementSuggestions"`
	FolkRemedies          []FolkRemedy        `json:"folkRemedies,omitempty"`
	LifestyleAdvice       LifestyleAdvice     `json:"lifestyleAdvice"`
	Precautions           []string            `json:"precautions"`
}

// AnalysisResult is the tagged union returned by /api/analysis, keyed
// by analysisMode. Exactly one of Professional or General is set.
type AnalysisResult struct {
	Mode         Mode
	Professional *ProfessionalAnalysis
	General      *GeneralAnalysis
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var tag struct {
		AnalysisMode Mode `json:"analysisMode"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	switch tag.AnalysisMode {
	case ModeProfessional:
		var pro ProfessionalAnalysis
		if err := json.Unmarshal(data, &pro); err != nil {
			return err
		}
		r.Mode = ModeProfessional
		r.Professional = &pro
	case ModeGeneral:
		var gen GeneralAnalysis
		if err := json.Unmarshal(data, &gen); err != nil {
			return err
		}
		r.Mode = ModeGeneral
		r.General = &gen
	default:
		return fmt.Errorf("unknown analysisMode %q", tag.AnalysisMode)
	}
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	switch r.Mode {
	case ModeProfessional:
		return json.Marshal(r.Professional)
	case ModeGeneral:
		return json.Marshal(r.General)
	}
	return nil, fmt.Errorf("unknown analysisMode %q", r.Mode)
}

// CompendiumEntry is one reference entry for a formula, herb or
// supplement. The prompt instructs the model to always populate the
// clinical/safety fields even though the schema marks them optional.
type CompendiumEntry struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Summary           string `json:"summary"`
	KeyConstituents   string `json:"keyConstituents,omitempty"`
	ClinicalEvidence  string `json:"clinicalEvidence,omitempty"`
	SafetyPrecautions string `json:"safetyPrecautions,omitempty"`
	Interactions      string `json:"interactions,omitempty"`
	Dosage            string `json:"dosage,omitempty"`
}

// CompendiumResult is returned by /api/compendium.
type CompendiumResult struct {
	IntegrativeViewpoint string            `json:"integrativeViewpoint"`
	KampoEntries         []CompendiumEntry `json:"kampoEntries"`
	WesternHerbEntries   []CompendiumEntry `json:"westernHerbEntries"`
	SupplementEntries    []CompendiumEntry `json:"supplementEntries"`
}
