package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kushalk47/aarogya-api/generation"
	"github.com/kushalk47/aarogya-api/models"
)

// Assistant produces the free-text artifacts: formatted reports, chat answers,
// record summaries and wellness plans
type Assistant struct {
	gen generation.Generator
}

// NewAssistant returns an assistant using gen
func NewAssistant(gen generation.Generator) *Assistant {
	return &Assistant{gen: gen}
}

// FormatReport turns dictated notes into report text ready for rendering
func (a *Assistant) FormatReport(ctx context.Context, notes string, pc PatientContext, doctor bson.M) (string, error) {
	if strings.TrimSpace(notes) == "" {
		return "", ErrEmptyInput
	}

	var b strings.Builder
	b.WriteString("You are an AI medical assistant. Format the following dictated notes into a structured medical report.\n")
	b.WriteString("Do not include a header or footer; those are added when the report is rendered.\n")
	b.WriteString("Where the notes fit naturally, organise them into Subjective, Objective, Assessment and Plan sections; otherwise write a clear narrative.\n")
	b.WriteString("Output only the report text. Do not add introductory or closing sentences such as 'Here is the report'.\n")
	b.WriteString("Do not use asterisks or any markdown formatting.\n")
	fmt.Fprintf(&b, "\n--- Doctor Information ---\n%s\n", FormatDoctor(doctor))
	fmt.Fprintf(&b, "\n--- Patient Information ---\n%s\n", FormatPatientContext(pc))
	fmt.Fprintf(&b, "\n--- Dictated Notes ---\n%s\n", notes)
	b.WriteString("\n--- Formatted Medical Report ---\n")

	out, err := a.gen.Generate(ctx, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(out, "*", "")), nil
}

// Answer responds to a question using only the patient's data
func (a *Assistant) Answer(ctx context.Context, pc PatientContext, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyInput
	}
	prompt := "You are a medical assistant helping doctors answer questions about a patient. " +
		"Answer using only the information in the patient data below. If the data does not contain the answer, " +
		"say that it cannot be answered from the available information. Do not invent or assume anything.\n\n" +
		"Patient Medical Data:\n" + FormatPatientContext(pc) +
		"\nQuery: " + query + "\n\nAnswer:"
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Summarize gives a concise overview of the patient's record
func (a *Assistant) Summarize(ctx context.Context, pc PatientContext) (string, error) {
	prompt := "You are a medical assistant. Write a concise, structured summary of the patient data below. " +
		"Highlight diagnoses, current medications, known allergies and significant history.\n\n" +
		"Patient Medical Data:\n" + FormatPatientContext(pc) + "\nSummary:"
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

var (
	markdownSymbols = regexp.MustCompile(`[*#]+`)

	wellnessSections = []struct {
		header string
		key    string
	}{
		{"Diet Recommendations:", "diet"},
		{"Healthy Habits:", "habits"},
		{"Things to Avoid:", "avoid"},
		{"Exercise Plan:", "exercise"},
	}
)

// WellnessPlan generates a four-section plan tailored to the patient
func (a *Assistant) WellnessPlan(ctx context.Context, pc PatientContext) (models.WellnessPlan, error) {
	var b strings.Builder
	b.WriteString("Based on the following patient data, write a personalised wellness plan with four sections. ")
	b.WriteString("Start each section on its own line with its plain text header followed by a colon, and do not use markdown symbols such as * or #. The sections are:\n")
	b.WriteString("Diet Recommendations: a diet suited to the patient's conditions, allergies and history, with specific foods and portions.\n")
	b.WriteString("Healthy Habits: daily habits that fit the patient's condition and lifestyle.\n")
	b.WriteString("Things to Avoid: foods, activities or behaviours to avoid given the patient's history and allergies.\n")
	b.WriteString("Exercise Plan: a suitable routine with type, duration and frequency.\n")
	b.WriteString("Keep every section specific and actionable.\n\n")
	fmt.Fprintf(&b, "Patient Data:\n%s", FormatPatientContext(pc))

	out, err := a.gen.Generate(ctx, b.String())
	if err != nil {
		return models.WellnessPlan{}, err
	}
	return parseWellness(out), nil
}

func parseWellness(text string) models.WellnessPlan {
	text = markdownSymbols.ReplaceAllString(text, "")
	sections := map[string][]string{}
	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, s := range wellnessSections {
			if strings.HasPrefix(strings.ToLower(line), strings.ToLower(s.header)) {
				current = s.key
				line = strings.TrimSpace(line[len(s.header):])
				break
			}
		}
		if current != "" && line != "" {
			sections[current] = append(sections[current], line)
		}
	}

	get := func(key string) string {
		if v := strings.Join(sections[key], " "); v != "" {
			return v
		}
		return fmt.Sprintf("No specific %s recommendations provided based on available data.", key)
	}
	return models.WellnessPlan{
		Diet:     get("diet"),
		Habits:   get("habits"),
		Avoid:    get("avoid"),
		Exercise: get("exercise"),
	}
}
