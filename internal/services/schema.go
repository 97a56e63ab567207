package services

import (
	"fmt"

	"github.com/asofia888/self-care-guide/models"
)

// Schema is the response-schema description sent with a JSON-mode
// generation request, in the generative API's OpenAPI-subset form.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

func str(desc string) *Schema {
	return &Schema{Type: "STRING", Description: desc}
}

func strArray(desc string) *Schema {
	return &Schema{Type: "ARRAY", Description: desc, Items: &Schema{Type: "STRING"}}
}

func object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "OBJECT", Properties: props, Required: required}
}

func array(item *Schema) *Schema {
	return &Schema{Type: "ARRAY", Items: item}
}

func lifestyleAdviceSchema() *Schema {
	return object(map[string]*Schema{
		"diet":     strArray("dietary recommendations"),
		"sleep":    strArray("sleep hygiene recommendations"),
		"exercise": strArray("exercise recommendations"),
	}, "diet", "sleep", "exercise")
}

func folkRemediesSchema() *Schema {
	return array(object(map[string]*Schema{
		"name":        str("remedy name"),
		"description": str("how the remedy is prepared and used"),
		"caution":     str("safety caution, if any"),
	}, "name", "description"))
}

func professionalSuggestionSchema() *Schema {
	return array(object(map[string]*Schema{
		"name":              str("substance or formula name"),
		"reason":            str("why it fits this presentation"),
		"pharmacology":      str("relevant pharmacology or traditional action"),
		"contraindications": str("contraindications and cautions"),
		"dosage":            str("typical dosage range"),
		"source":            str("reference or tradition of use"),
	}, "name", "reason", "pharmacology", "contraindications"))
}

func generalSuggestionSchema() *Schema {
	return array(object(map[string]*Schema{
		"name":    str("substance name"),
		"reason":  str("why it may help"),
		"usage":   str("how to take it"),
		"caution": str("safety caution, if any"),
	}, "name", "reason"))
}

// AnalysisSchema returns the response schema for the given analysis
// mode. Professional carries the differential-diagnosis triple and the
// richer suggestion fields; general carries a wellness profile and the
// simpler ones.
func AnalysisSchema(mode models.Mode) *Schema {
	if mode == models.ModeProfessional {
		return object(map[string]*Schema{
			"analysisMode": {Type: "STRING", Enum: []string{"professional"}},
			"differentialDiagnosis": object(map[string]*Schema{
				"pattern":   str("identified pattern (証)"),
				"pathology": str("pathological mechanism"),
				"evidence":  str("supporting findings from the intake"),
			}, "pattern", "pathology", "evidence"),
			"rationale":             str("clinical rationale for the assessment"),
			"treatmentPrinciple":    str("treatment principle (治法)"),
			"herbSuggestions":       professionalSuggestionSchema(),
			"kampoSuggestions":      professionalSuggestionSchema(),
			"supplementSuggestions": professionalSuggestionSchema(),
			"folkRemedies":          folkRemediesSchema(),
			"lifestyleAdvice":       lifestyleAdviceSchema(),
			"precautions":           strArray("warnings and red flags"),
		},
			"analysisMode", "differentialDiagnosis", "rationale", "treatmentPrinciple",
			"herbSuggestions", "kampoSuggestions", "supplementSuggestions",
			"lifestyleAdvice", "precautions")
	}

	return object(map[string]*Schema{
		"analysisMode": {Type: "STRING", Enum: []string{"general"}},
		"wellnessProfile": object(map[string]*Schema{
			"title":   str("short title for this wellness profile"),
			"summary": str("encouraging summary of the profile"),
		}, "title", "summary"),
		"herbSuggestions":       generalSuggestionSchema(),
		"supplementSuggestions": generalSuggestionSchema(),
		"folkRemedies":          folkRemediesSchema(),
		"lifestyleAdvice":       lifestyleAdviceSchema(),
		"precautions":           strArray("safety notes and when to see a professional"),
	},
		"analysisMode", "wellnessProfile", "herbSuggestions",
		"supplementSuggestions", "lifestyleAdvice", "precautions")
}

func compendiumEntrySchema() *Schema {
	return array(object(map[string]*Schema{
		"name":              str("name of the formula, herb or supplement"),
		"category":          str("category within its tradition"),
		"summary":           str("what it is and what it is used for"),
		"keyConstituents":   str("key constituents or component herbs"),
		"clinicalEvidence":  str("state of clinical evidence"),
		"safetyPrecautions": str("safety precautions"),
		"interactions":      str("known drug interactions"),
		"dosage":            str("typical dosage"),
	}, "name", "category", "summary"))
}

// CompendiumSchema returns the response schema for compendium lookups.
func CompendiumSchema() *Schema {
	return object(map[string]*Schema{
		"integrativeViewpoint": str("integrative overview relating the traditions to the query"),
		"kampoEntries":         compendiumEntrySchema(),
		"westernHerbEntries":   compendiumEntrySchema(),
		"supplementEntries":    compendiumEntrySchema(),
	}, "integrativeViewpoint", "kampoEntries", "westernHerbEntries", "supplementEntries")
}

// AnalysisInstruction builds the system instruction for an analysis
// request. Mode selects the register; language the output language.
func AnalysisInstruction(mode models.Mode, lang models.Language) string {
	base := "You are an expert integrative-medicine advisor covering Kampo medicine, " +
		"Western herbalism and evidence-based supplementation.\n" +
		fmt.Sprintf("Respond entirely in %s.\n", lang.DisplayName()) +
		"Return only JSON conforming to the provided schema, with no markdown fencing.\n"

	if mode == models.ModeProfessional {
		return base +
			"The reader is a clinical practitioner. Be specific and clinical: state the " +
			"identified pattern, the pathological mechanism and the evidence from the " +
			"intake that supports them. Include pharmacology and contraindications for " +
			"every suggestion. If face or tongue images are attached, incorporate their " +
			"findings into the differential diagnosis.\n"
	}
	return base +
		"The reader is a member of the general public. Be safe and encouraging: avoid " +
		"diagnostic language, prefer gentle widely-available options, and always advise " +
		"consulting a professional before starting any supplement. If face or tongue " +
		"images are attached, describe only general wellness observations.\n"
}

// CompendiumInstruction builds the system instruction for a compendium
// lookup. The cardinality of each result list depends on whether the
// query names a single substance or describes a symptom/condition.
func CompendiumInstruction(lang models.Language) string {
	return "You are a reference compendium of Kampo formulas, Western herbs and " +
		"dietary supplements.\n" +
		fmt.Sprintf("Respond entirely in %s.\n", lang.DisplayName()) +
		"Return only JSON conforming to the provided schema, with no markdown fencing.\n" +
		"First decide whether the query names a single specific substance or describes " +
		"a symptom or condition.\n" +
		"If it names a single substance: return exactly one entry in the category that " +
		"substance belongs to and leave the other two lists empty.\n" +
		"If it describes a symptom or condition: return up to 3 Kampo formulas, up to 3 " +
		"Western herbs, and 5 to 7 supplements relevant to it.\n" +
		"Always populate the clinical evidence, safety precautions, interactions and " +
		"dosage fields of every entry.\n"
}

// Prompt is the assembled input for one generation call. Schema must
// be set; Generate uses its required keys to judge response
// completeness.
type Prompt struct {
	System string
	Text   string
	Images []models.ImagePayload
	Schema *Schema
}

// BuildAnalysisPrompt assembles the prompt for an analysis request.
// The profile object is passed through verbatim as JSON.
func BuildAnalysisPrompt(req *models.AnalysisRequest) Prompt {
	text := fmt.Sprintf("Analysis mode: %s\nHealth profile (JSON):\n%s\n", req.Mode, string(req.Profile))

	var images []models.ImagePayload
	if req.FaceImage != nil {
		text += "A face photograph is attached.\n"
		images = append(images, *req.FaceImage)
	}
	if req.TongueImage != nil {
		text += "A tongue photograph is attached.\n"
		images = append(images, *req.TongueImage)
	}

	return Prompt{
		System: AnalysisInstruction(req.Mode, req.Language),
		Text:   text,
		Images: images,
		Schema: AnalysisSchema(req.Mode),
	}
}

// BuildCompendiumPrompt assembles the prompt for a compendium lookup.
func BuildCompendiumPrompt(req *models.CompendiumRequest) Prompt {
	return Prompt{
		System: CompendiumInstruction(req.Language),
		Text:   fmt.Sprintf("Query: %s", req.Query),
		Schema: CompendiumSchema(),
	}
}
