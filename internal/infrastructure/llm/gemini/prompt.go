package gemini

import (
	"fmt"
	"strings"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
)

// analysisResponseSchema constrains the vision model to the capture analysis
// shape. Type names follow the generateContent schema dialect.
var analysisResponseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"score":        map[string]any{"type": "NUMBER", "description": "Compliance score 0-100"},
		"hazards":      map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}, "description": "List of hazards (Summary)."},
		"zoningIssues": map[string]any{"type": "STRING", "description": "Analysis of markings."},
		"summary":      map[string]any{"type": "STRING", "description": "Executive summary."},
		"relevantStandards": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"standardId":  map[string]any{"type": "STRING"},
					"description": map[string]any{"type": "STRING"},
				},
			},
		},
		"missingDocuments": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"recommendedItems": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"item":     map[string]any{"type": "STRING"},
					"quantity": map[string]any{"type": "STRING"},
					"reason":   map[string]any{"type": "STRING"},
				},
			},
		},
		"category":  map[string]any{"type": "STRING", "description": "One of the 9 specific facility categories if applicable."},
		"riskLevel": map[string]any{"type": "STRING", "description": "Overall risk level for this image: Low, Medium, or High."},
		"detailedFindings": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"issue":          map[string]any{"type": "STRING"},
					"type":           map[string]any{"type": "STRING", "description": "Good condition, Minor issue, Major defect, Safety hazard, or Compliance gap"},
					"risk":           map[string]any{"type": "STRING", "description": "Low, Medium, High, or None"},
					"recommendation": map[string]any{"type": "STRING", "description": "Preventive/Corrective/Improvement action"},
				},
			},
		},
	},
	"required": []string{"score", "hazards", "zoningIssues", "summary", "relevantStandards", "missingDocuments", "recommendedItems"},
}

func scopeConfigs(scopes []domain.Scope) []domain.ScopeConfig {
	configs := make([]domain.ScopeConfig, 0, len(scopes))
	for _, s := range scopes {
		if cfg, ok := domain.ScopeConfigFor(s); ok {
			configs = append(configs, cfg)
		}
	}
	return configs
}

func joinField(configs []domain.ScopeConfig, sep string, pick func(domain.ScopeConfig) string) string {
	parts := make([]string, 0, len(configs))
	for _, cfg := range configs {
		parts = append(parts, pick(cfg))
	}
	return strings.Join(parts, sep)
}

func buildAnalysisPrompt(scopes []domain.Scope, location string) string {
	configs := scopeConfigs(scopes)
	labels := joinField(configs, ", ", func(c domain.ScopeConfig) string { return c.Label })
	focuses := joinField(configs, "; ", func(c domain.ScopeConfig) string { return c.Focus })
	standards := joinField(configs, "; ", func(c domain.ScopeConfig) string { return c.Standards })
	documents := joinField(configs, "; ", func(c domain.ScopeConfig) string { return c.Documents })

	locContext := "The inspection location is generic/unknown. Apply International Best Practices (ISO/NFPA)."
	if strings.TrimSpace(location) != "" {
		locContext = fmt.Sprintf("The inspection is taking place at specific location: %q. "+
			"You MUST infer the country/region and apply the specific local laws/codes relevant to this jurisdiction for each scope.", location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n", locContext)
	fmt.Fprintf(&b, "Task: Analyze ONLY for the following compliance scopes: %s.\n", labels)
	b.WriteString("CRITICAL: STRICTLY IGNORE any issues, hazards, or non-compliance that falls outside of these selected scopes.\n\n")

	b.WriteString("1. JURISDICTION & SCOPE MAPPING:\n")
	fmt.Fprintf(&b, "Based on the location %q, apply specific Local Legislation and International Standards:\n%s\n\n", location, standards)

	b.WriteString("2. COMBINED ANALYSIS:\n")
	fmt.Fprintf(&b, "- Focus ONLY on: %s.\n", focuses)

	if domain.HasScope(scopes, domain.ScopeFacility) {
		b.WriteString(`
SPECIFIC INSTRUCTIONS FOR ISO 41001 FACILITY INSPECTION:
A. CLASSIFY the image into EXACTLY ONE of these 9 categories:
   1. Exterior Facility (Walls, facade, roof, boundary, parking)
   2. Interior Facility (Floors, ceilings, walls, doors, stairs)
   3. MEP Systems (Visual Only - Electrical, HVAC, Plumbing)
   4. Fire & Life Safety (Extinguishers, exits, sprinklers)
   5. Facility Security (CCTV, access, boundary)
   6. Environmental & Sustainability (Waste, chemicals, leaks)
   7. Asset Condition (Equipment, labels, racking)
   8. Cleanliness & Housekeeping (Clutter, spills, pest)
   9. Contractor Compliance (PPE, barricading, tools)

B. IDENTIFY FINDINGS for 'detailedFindings':
   - For each observation, determine the Type: 'Good condition', 'Minor issue', 'Major defect', 'Safety hazard', or 'Compliance gap'.
   - Assign a Risk Level: 'Low', 'Medium', 'High', or 'None'.
   - Provide a Recommendation (Preventive, Corrective, or Improvement).

C. SCORE:
   - Provide an overall score (0-100) for this image based on the findings.
`)
	} else {
		b.WriteString(`- Compare visual evidence against these SPECIFIC inferred local laws.
- For OHS, prioritize trip hazards, guards, and markings.
`)
	}

	b.WriteString("\n3. REMEDIATION ITEMS (BILL OF MATERIALS):\n")
	b.WriteString("- Identify physical items needed to fix these hazards.\n\n")
	b.WriteString("4. REPORTING (STANDARDS & DOCUMENTS):\n")
	b.WriteString("- In 'relevantStandards', list specific laws found.\n")
	fmt.Fprintf(&b, "- In 'missingDocuments', infer required compliance documents from this reference list: [%s].\n", documents)
	b.WriteString("- ONLY list documents that are likely missing or required based on the visual evidence detected " +
		"(e.g. if a machine is unguarded, flag 'Risk Assessment' and 'Maintenance Logs'). Do not list all.\n")
	return b.String()
}

func buildOverlayPrompt(scopes []domain.Scope) string {
	configs := scopeConfigs(scopes)
	labels := joinField(configs, " and ", func(c domain.ScopeConfig) string { return c.Label })

	examples := []string{"'HAZARD'"}
	for _, cfg := range configs {
		for _, l := range cfg.OverlayLabels {
			examples = append(examples, "'"+l+"'")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Redraw the image with safety/inspection overlays ONLY for %s.\n\n", labels)
	b.WriteString("1. DETECT HAZARDS (RED Bounding Boxes & Text):\n")
	fmt.Fprintf(&b, "   - Identify hazards relevant to %s.\n", labels)
	if domain.HasScope(scopes, domain.ScopeOHS) {
		b.WriteString(`   - CRITICAL OHS TASK: Detect TRIP HAZARDS. Label as 'TRIP HAZARD'.
   - CRITICAL OHS TASK: Detect UNGUARDED MACHINERY. Label as 'NO GUARD'.
   - CRITICAL OHS TASK: If industrial machines LACK yellow/black safety zoning, DRAW VIRTUAL YELLOW/BLACK DIAGONAL STRIPES on the floor surrounding the machine.
`)
	}
	if domain.HasScope(scopes, domain.ScopeFacility) {
		b.WriteString("   - Detect visual defects (cracks, stains, leaks, clutter). Label clearly (e.g., 'WALL CRACK', 'WATER LEAK').\n")
	}
	fmt.Fprintf(&b, "   - Label all hazards clearly (e.g., %s).\n\n", strings.Join(examples, ", "))
	b.WriteString(`2. DETECT POSITIVE COMPLIANCE (GREEN Bounding Boxes & Text):
   - Label as 'COMPLIANT' or 'GOOD CONDITION'.

3. VISUAL QUALITY:
   - Ensure text is UPPERCASE, LEGIBLE, and SPELLED CORRECTLY.
`)
	return b.String()
}

const planImagePrompt = `Create a professional evacuation plan floor map based on this image.
1. Draw a clear white floor plan with black walls.
2. ADD FLOOR MARKINGS: Draw distinct Green pathways/arrows on the floor indicating the safe exit route.
3. Mark 'EMERGENCY EXIT' locations with standard Green/White exit signs.
4. Add Red icons for Fire Extinguishers if relevant to the location.
5. Title the top 'EVACUATION PLAN'.
6. CRITICAL: Ensure the title and 'EXIT' signs are SPELLED CORRECTLY and are crisp/legible.
`

func buildCustomCheckPrompt(query, location string) string {
	if strings.TrimSpace(location) == "" {
		location = "an unspecified site"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Context: Inspection at %s.\n", location)
	fmt.Fprintf(&b, "Task: Analyze the provided images of this room/area specifically against the following standard/requirement: %q.\n\n", query)
	b.WriteString("Provide a concise but professional assessment report including:\n")
	b.WriteString("1. Compliance Verdict (Compliant / Non-Compliant / Needs Review)\n")
	fmt.Fprintf(&b, "2. Specific Observations related specifically to %q based on visual evidence.\n", query)
	b.WriteString("3. Citation of likely applicable clauses of the requested standard (if known) or general best practices.\n")
	b.WriteString("4. Recommended Remediation steps if applicable.\n\n")
	b.WriteString("Format the output in clean Markdown.\n")
	return b.String()
}

func buildPlanTextPrompt(req ports.PlanRequest) string {
	labels := strings.Join(domain.ScopeLabels(req.Scopes), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "Write a written evacuation procedure for the area %q (department: %s).\n", req.RoomName, req.Department)
	if labels != "" {
		fmt.Fprintf(&b, "Active compliance scopes: %s.\n", labels)
	}
	if len(req.Hazards) > 0 {
		fmt.Fprintf(&b, "Known hazards in this area: %s.\n", strings.Join(req.Hazards, "; "))
	}
	if len(req.Findings) > 0 {
		b.WriteString("Recent inspection findings to account for:\n")
		for _, f := range req.Findings {
			fmt.Fprintf(&b, "- [%s/%s] %s\n", f.Type, f.Risk, f.Issue)
		}
	}
	b.WriteString(`
Produce a numbered emergency evacuation procedure covering:
1. Alarm and notification steps.
2. Primary and secondary egress routes.
3. Assembly point and headcount.
4. Responsibilities (floor warden, first aider).
5. Special considerations for the hazards listed above.

Format the output in clean Markdown. Keep it under 400 words.
`)
	return b.String()
}
