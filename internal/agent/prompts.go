package agent

import (
	"fmt"
	"strings"

	"techatlas/internal/models"
)

type target struct {
	name  string
	field string
	// kind is fixed for the dedicated agents; the search agent reads it from the request.
	kind models.Kind
}

var targets = map[string]target{
	"hubs":      {name: "hubs", field: "item", kind: models.KindHub},
	"jobs":      {name: "jobs", field: "job", kind: models.KindJob},
	"resources": {name: "resources", field: "resource", kind: models.KindResource},
	"search":    {name: "search", field: "item"},
}

func (t target) resolve(raw string) (models.KindInfo, error) {
	if t.kind != "" {
		return models.MustKind(t.kind), nil
	}
	if strings.TrimSpace(raw) == "" {
		return models.MustKind(models.KindHub), nil
	}
	info, ok := models.LookupKind(raw)
	if !ok {
		return models.KindInfo{}, fmt.Errorf("unknown type %q", raw)
	}
	return info, nil
}

// shape describes the JSON object the model must produce for a kind.
type shape struct {
	titleField       string
	descriptionField string
	imageField       string
	urlFields        []string
	example          string
}

var shapes = map[models.Kind]shape{
	models.KindHub: {
		titleField: "name", descriptionField: "description", imageField: "logo_url",
		urlFields: []string{"website"},
		example:   `{"name": "", "description": "", "location": "", "district": "", "website": "", "email": "", "phone": "", "services": [], "tags": []}`,
	},
	models.KindCommunity: {
		titleField: "name", descriptionField: "description",
		urlFields: []string{"website", "twitter_url", "linkedin_url"},
		example:   `{"name": "", "description": "", "focus_area": "", "location": "", "website": "", "twitter_url": "", "linkedin_url": "", "tags": []}`,
	},
	models.KindStartup: {
		titleField: "name", descriptionField: "description",
		urlFields: []string{"website"},
		example:   `{"name": "", "tagline": "", "description": "", "industry": "", "stage": "idea|pre-seed|seed|series-a|series-b|growth", "founded_year": 2020, "location": "", "website": "", "tags": []}`,
	},
	models.KindJob: {
		titleField: "title", descriptionField: "description",
		urlFields: []string{"apply_url"},
		example:   `{"title": "", "company": "", "description": "", "type": "full-time|part-time|contract|internship", "level": "entry|mid|senior|lead", "location": "", "remote": false, "apply_url": "", "deadline": "YYYY-MM-DDT00:00:00Z", "skills": []}`,
	},
	models.KindGig: {
		titleField: "title", descriptionField: "description",
		urlFields: []string{"url"},
		example:   `{"title": "", "description": "", "category": "", "duration": "", "remote": true, "contact_email": "", "skills": []}`,
	},
	models.KindEvent: {
		titleField: "title", descriptionField: "description",
		urlFields: []string{"registration_url"},
		example:   `{"title": "", "description": "", "category": "meetup|conference|hackathon|workshop|webinar|networking", "location": "", "venue": "", "is_online": false, "start_date": "YYYY-MM-DDTHH:MM:00Z", "end_date": "", "registration_url": "", "organizer": "", "tags": []}`,
	},
	models.KindOpportunity: {
		titleField: "title", descriptionField: "description",
		urlFields: []string{"apply_url"},
		example:   `{"title": "", "description": "", "type": "grant|fellowship|scholarship|accelerator|competition", "organization": "", "deadline": "YYYY-MM-DDT00:00:00Z", "apply_url": "", "eligibility": "", "tags": []}`,
	},
	models.KindResource: {
		titleField: "title", descriptionField: "description",
		urlFields: []string{"url"},
		example:   `{"title": "", "description": "", "type": "course|tutorial|book|video|podcast", "level": "beginner|intermediate|advanced", "category": "", "url": "", "provider": "", "is_free": true, "tags": []}`,
	},
}

const systemPrompt = `You research the technology ecosystem in Uganda for a public directory.
Use web search to verify facts. Never invent contact details or URLs; leave a field empty when unsure.
Reply with exactly one JSON object and no other text.`

func buildPrompt(info models.KindInfo, sh shape, query string, existing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find a %s in Uganda matching: %q\n\n", info.Singular, query)
	fmt.Fprintf(&b, "Return a JSON object with this shape:\n%s\n", sh.example)
	if len(existing) > 0 {
		fmt.Fprintf(&b, "\nThese %s are already listed. Prefer one that is not among them:\n", info.Kind)
		for _, title := range existing {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	return b.String()
}

const infographicSystemPrompt = `You design clean, accessible infographics as standalone SVG documents.
Use only SVG shapes, text and gradients. No scripts, no external images, no fonts other than sans-serif.
Reply with a single <svg> element and nothing else.`

const infographicPrompt = `Create an 800x600 infographic about %q for the Uganda tech community.
Use a viewBox of "0 0 800 600", a title at the top and three to five labelled sections.`
