package publisher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors contains the URLs and CSS selectors that make up the stable
// contract points of the X web UI. Any of them can be overridden from a
// YAML file, so a UI change can be patched without rebuilding.
type Selectors struct {
	BaseURL  string `yaml:"baseUrl"`
	LoginURL string `yaml:"loginUrl"`
	HomeURL  string `yaml:"homeUrl"`

	UsernameInput string `yaml:"usernameInput"`
	NextButton    string `yaml:"nextButton"`
	PasswordInput string `yaml:"passwordInput"`
	LoginButton   string `yaml:"loginButton"`

	// HomeMarker is an element only present on the authenticated landing
	// surface; its appearance is the login/verification success signal.
	HomeMarker    string `yaml:"homeMarker"`
	LoginPagePath string `yaml:"loginPagePath"` // URL fragment marking a redirect back to login

	ComposeURL string `yaml:"composeUrl"`
	ComposeBox string `yaml:"composeBox"`
	PostButton string `yaml:"postButton"`

	ReplyButton  string `yaml:"replyButton"`
	TimelineItem string `yaml:"timelineItem"`
}

// DefaultSelectors returns the selector set for x.com as of early 2026.
func DefaultSelectors() Selectors {
	return Selectors{
		BaseURL:  "https://x.com",
		LoginURL: "https://x.com/i/flow/login",
		HomeURL:  "https://x.com/home",

		UsernameInput: `input[autocomplete='username']`,
		// XPath: the "Next" button in the login flow has no stable test id.
		NextButton:    `//button[.//span[text()='Next']]`,
		PasswordInput: `input[name='password']`,
		LoginButton:   `[data-testid='LoginForm_Login_Button']`,

		HomeMarker:    `[data-testid='SideNav_NewTweet_Button']`,
		LoginPagePath: "/login",

		ComposeURL: "https://x.com/compose/post",
		ComposeBox: `[data-testid='tweetTextarea_0']`,
		PostButton: `[data-testid='tweetButton']`,

		ReplyButton:  `[data-testid='reply']`,
		TimelineItem: `article[data-testid='tweet']`,
	}
}

// LoadSelectors overlays the defaults with overrides from a YAML file.
// A missing file is not an error; a malformed one is.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sel, nil
	}
	if err != nil {
		return sel, fmt.Errorf("read selectors file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	return sel, nil
}
