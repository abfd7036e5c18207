package seed

import (
	"fmt"
	"strings"
	"time"

	"techatlas/internal/models"
	"techatlas/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Password123!"

var (
	districts = []string{"Kampala", "Wakiso", "Mukono", "Entebbe", "Jinja", "Gulu", "Mbarara", "Mbale", "Fort Portal", "Lira"}
	sectors   = []string{"fintech", "agritech", "healthtech", "edtech", "logistics", "cleantech", "e-commerce", "media"}
	skills    = []string{"Go", "Python", "JavaScript", "TypeScript", "React", "Flutter", "Kotlin", "PostgreSQL", "Docker", "AWS", "Figma", "Data Analysis"}
	topics    = []string{"mobile money", "open data", "startup funding", "remote work", "coding bootcamps", "hackathons", "cloud costs", "AI in agriculture"}
)

// Factory builds fake request bodies and accounts.
type Factory struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory returns a Factory. A zero seed picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: time.Now}
}

// User builds an account with the given role. The password is hashed unless
// skipBcrypt is set.
func (f *Factory) User(role models.Role, skipBcrypt bool) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := strings.ToLower(first + "_" + last + fmt.Sprint(f.faker.Number(10, 999)))
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: first + " " + last,
		AvatarURL:   "https://i.pravatar.cc/150?u=" + username,
		Role:        role,
	}
	user.Password = hashPassword(DefaultPassword, skipBcrypt)
	return user
}

func hashPassword(password string, skipBcrypt bool) string {
	if skipBcrypt {
		return password
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed)
}

// Listing builds a create body for kind that passes validation.
func (f *Factory) Listing(kind models.Kind) map[string]any {
	fk := f.faker
	district := fk.RandomString(districts)
	tags := []string{fk.RandomString(sectors), fk.RandomString(sectors)}

	switch kind {
	case models.KindHub:
		return map[string]any{
			"name":        fk.Company() + " Innovation Hub",
			"description": fk.Paragraph(1, 3, 12, " "),
			"location":    fk.Street() + ", " + district,
			"district":    district,
			"website":     "https://" + fk.DomainName(),
			"email":       fk.Email(),
			"phone":       "+256 7" + fk.Numerify("## ### ###"),
			"services":    []string{"co-working", "incubation", "mentorship"},
			"tags":        tags,
		}
	case models.KindCommunity:
		return map[string]any{
			"name":        fk.RandomString(sectors) + " " + fk.RandomString([]string{"Builders", "Circle", "Collective", "Guild"}) + " " + district,
			"description": fk.Paragraph(1, 2, 12, " "),
			"focus_area":  fk.RandomString(sectors),
			"location":    district,
			"website":     "https://" + fk.DomainName(),
			"tags":        tags,
		}
	case models.KindStartup:
		return map[string]any{
			"name":         fk.AppName(),
			"tagline":      fk.HackerPhrase(),
			"description":  fk.Paragraph(1, 3, 12, " "),
			"industry":     fk.RandomString(sectors),
			"stage":        fk.RandomString([]string{"idea", "pre-seed", "seed", "series-a", "series-b", "growth"}),
			"founded_year": fk.Number(2010, f.now().Year()),
			"location":     district,
			"website":      "https://" + fk.DomainName(),
			"tags":         tags,
		}
	case models.KindJob:
		return map[string]any{
			"title":       fk.JobTitle(),
			"company":     fk.Company(),
			"description": fk.Paragraph(2, 3, 12, "\n\n"),
			"type":        fk.RandomString([]string{"full-time", "part-time", "contract", "internship"}),
			"level":       fk.RandomString([]string{"entry", "mid", "senior", "lead"}),
			"location":    district,
			"remote":      fk.Bool(),
			"currency":    "UGX",
			"salary_min":  fmt.Sprint(fk.Number(15, 40) * 100000),
			"salary_max":  fmt.Sprint(fk.Number(41, 90) * 100000),
			"apply_url":   "https://" + fk.DomainName() + "/careers",
			"deadline":    f.future(60),
			"skills":      f.pick(skills, 3),
		}
	case models.KindGig:
		return map[string]any{
			"title":         fk.RandomString([]string{"Build", "Redesign", "Audit", "Migrate"}) + " " + fk.BuzzWord() + " " + fk.RandomString([]string{"website", "app", "dashboard", "API"}),
			"description":   fk.Paragraph(1, 3, 12, " "),
			"category":      fk.RandomString([]string{"development", "design", "writing", "data"}),
			"currency":      "UGX",
			"budget":        fmt.Sprint(fk.Number(5, 50) * 100000),
			"duration":      fmt.Sprintf("%d weeks", fk.Number(1, 8)),
			"remote":        true,
			"contact_email": fk.Email(),
			"deadline":      f.future(30),
			"skills":        f.pick(skills, 2),
		}
	case models.KindEvent:
		start := f.now().UTC().AddDate(0, 0, fk.Number(-30, 60)).Truncate(time.Hour)
		return map[string]any{
			"title":            fk.RandomString([]string{"Kampala", "Uganda", "East Africa"}) + " " + fk.RandomString(topics) + " " + fk.RandomString([]string{"Meetup", "Summit", "Hackathon", "Workshop"}),
			"description":      fk.Paragraph(1, 3, 12, " "),
			"category":         fk.RandomString([]string{"meetup", "conference", "hackathon", "workshop", "webinar", "networking"}),
			"location":         district,
			"venue":            fk.Company() + " Hall",
			"is_online":        fk.Bool(),
			"start_date":       start,
			"end_date":         start.Add(time.Duration(fk.Number(2, 10)) * time.Hour),
			"registration_url": "https://" + fk.DomainName() + "/register",
			"organizer":        fk.Company(),
			"tags":             tags,
		}
	case models.KindOpportunity:
		return map[string]any{
			"title":        fk.Company() + " " + fk.RandomString([]string{"Grant", "Fellowship", "Scholarship", "Accelerator", "Challenge"}),
			"description":  fk.Paragraph(1, 3, 12, " "),
			"type":         fk.RandomString([]string{"grant", "fellowship", "scholarship", "accelerator", "competition"}),
			"organization": fk.Company(),
			"currency":     "USD",
			"amount":       fmt.Sprint(fk.Number(1, 50) * 1000),
			"deadline":     f.future(90),
			"apply_url":    "https://" + fk.DomainName() + "/apply",
			"eligibility":  "Ugandan founders and students",
			"tags":         tags,
		}
	case models.KindResource:
		free := fk.Bool()
		body := map[string]any{
			"title":       fk.RandomString([]string{"Intro to", "Mastering", "Practical", "Hands-on"}) + " " + fk.RandomString(skills),
			"description": fk.Paragraph(1, 2, 12, " "),
			"type":        fk.RandomString([]string{"course", "tutorial", "book", "video", "podcast"}),
			"level":       fk.RandomString([]string{"beginner", "intermediate", "advanced"}),
			"category":    fk.RandomString([]string{"programming", "design", "data", "business"}),
			"url":         "https://" + fk.DomainName() + "/learn",
			"provider":    fk.Company(),
			"is_free":     free,
			"tags":        tags,
		}
		if !free {
			body["price"] = fmt.Sprint(fk.Number(10, 300) * 1000)
			body["currency"] = "UGX"
		}
		return body
	}
	return map[string]any{}
}

// Post builds a blog post body.
func (f *Factory) Post() service.BlogInput {
	fk := f.faker
	topic := fk.RandomString(topics)
	return service.BlogInput{
		Title:   strings.ToUpper(topic[:1]) + topic[1:] + ": " + fk.HackerPhrase(),
		Excerpt: fk.Sentence(12),
		Content: "## " + fk.Sentence(4) + "\n\n" + fk.Paragraph(3, 4, 14, "\n\n") + "\n\n- " + strings.Join(f.pick(skills, 3), "\n- "),
		Tags:    []string{topic, fk.RandomString(sectors)},
	}
}

// Thread builds a forum thread body.
func (f *Factory) Thread() service.ThreadInput {
	fk := f.faker
	return service.ThreadInput{
		Title:    fk.Question(),
		Content:  fk.Paragraph(1, 3, 12, " "),
		Category: fk.RandomString([]string{"general", "careers", "startups", "learning", "events", "help"}),
	}
}

// Reply builds a forum reply body.
func (f *Factory) Reply() string {
	return f.faker.Paragraph(1, 2, 10, " ")
}

func (f *Factory) future(maxDays int) time.Time {
	return f.now().UTC().AddDate(0, 0, f.faker.Number(7, maxDays)).Truncate(24 * time.Hour)
}

func (f *Factory) pick(from []string, n int) []string {
	out := make([]string, 0, n)
	seen := map[string]bool{}
	for len(out) < n && len(seen) < len(from) {
		v := f.faker.RandomString(from)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
