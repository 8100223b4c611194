package security

import "testing"

func TestCrawlerDetect(t *testing.T) {
	cd := NewCrawlerDetector()

	tests := []struct {
		name      string
		userAgent string
		want      bool
		wantName  string
	}{
		{"WhatsApp preview", "WhatsApp/2.23.20.0", true, "whatsapp"},
		{"Slack preview", "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", true, "slack"},
		{"Telegram preview", "TelegramBot (like TwitterBot)", true, "telegram"},
		{"Facebook preview", "facebookexternalhit/1.1", true, "facebook"},
		{"Googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true, "google"},
		{"Generic crawler", "MyCompany-Crawler/3.1", true, "generic"},
		{"Headless browser", "Mozilla/5.0 HeadlessChrome/118.0", true, "generic"},
		{"Empty user agent", "", true, "generic"},
		{"Chrome on desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0 Safari/537.36", false, ""},
		{"Safari on iPhone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, name := cd.Detect(tt.userAgent)
			if got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.userAgent, got, tt.want)
			}
			if name != tt.wantName {
				t.Errorf("Detect(%q) name = %q, want %q", tt.userAgent, name, tt.wantName)
			}
		})
	}
}

func TestCrawlerRegister(t *testing.T) {
	cd := NewCrawlerDetector()

	if got, _ := cd.Detect("InternalMonitor/1.0 checks"); got {
		t.Fatal("Unregistered agent should not be detected")
	}

	cd.Register("InternalMonitor", "monitor")

	got, name := cd.Detect("InternalMonitor/1.0 checks")
	if !got || name != "monitor" {
		t.Errorf("Detect() = (%v, %q), want (true, %q)", got, name, "monitor")
	}
}
