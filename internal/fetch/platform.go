package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known job board.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformUnknown    Platform = "unknown"
)

type platformRules struct {
	hosts   []string
	content []string
	noise   []string
}

var platforms = map[Platform]platformRules{
	PlatformGreenhouse: {
		hosts:   []string{"greenhouse.io"},
		content: []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:   []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
	},
	PlatformLever: {
		hosts:   []string{"lever.co"},
		content: []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:   []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	PlatformWorkday: {
		hosts:   []string{"workday.com", "myworkdayjobs.com"},
		content: []string{"[data-automation-id='jobDescription']", ".gwt-HTML", ".job-description"},
		noise:   []string{"[data-automation-id='applyButton']", ".application-section"},
	},
}

// genericContent is tried on unknown hosts.
var genericContent = []string{
	".job-description", ".job-content", "#job-description", "#job-content", ".posting-content",
	".job-details", "[data-testid='job-description']", "main", "article", ".content", "#content",
}

// commonNoise is removed on every platform: application forms, EEO blurbs,
// share buttons and consent banners.
var commonNoise = []string{
	"form", "#application-form", ".application-form", ".apply-button-container",
	".voluntary-disclosure", ".eeo-statement", ".eeo-section", ".legal-disclosure", ".self-identification",
	".social-share", ".share-buttons", ".cookie-consent", ".gdpr-notice",
}

// DetectPlatform identifies the job board from the URL host.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for p, rules := range platforms {
		for _, h := range rules.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return p
			}
		}
	}
	return PlatformUnknown
}

// ContentSelectors returns the selectors that locate the posting body.
func ContentSelectors(p Platform) []string {
	if rules, ok := platforms[p]; ok {
		return rules.content
	}
	return genericContent
}

// NoiseSelectors returns the elements removed before extraction.
func NoiseSelectors(p Platform) []string {
	out := append([]string(nil), commonNoise...)
	if rules, ok := platforms[p]; ok {
		out = append(out, rules.noise...)
	}
	return out
}
