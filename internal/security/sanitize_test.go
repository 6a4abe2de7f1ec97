package security

import (
	"strings"
	"testing"
)

func TestValidatePrincipal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "admin", false},
		{"with dash and dot", "backup-bot.ro", false},
		{"with at sign", "ops@lab", false},
		{"empty", "", true},
		{"with space", "ad min", true},
		{"with newline", "admin\n", true},
		{"with tab", "ad\tmin", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrincipal(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrincipal(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"print", "/system identity print", false},
		{"scripting is passed through", `:foreach i in=[/interface find] do={:put $i}`, false},
		{"chained", "/file remove backup.rsc; /export file=backup", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"nul byte", "/system\x00reboot", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeCommandForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string // substring that should NOT be present
		masked   bool   // true if the output should contain ****
	}{
		{
			"masks user password",
			"/user set admin password=hunter2",
			"hunter2",
			true,
		},
		{
			"masks quoted secret",
			`/ppp secret add name=vpn secret="my secret"`,
			"my secret",
			true,
		},
		{
			"masks pre-shared key",
			"/interface wireless security-profiles set default wpa2-pre-shared-key=wifipass mode=dynamic-keys",
			"wifipass",
			true,
		},
		{
			"masks value before semicolon",
			"/user set admin password=abc;/system reboot",
			"abc",
			true,
		},
		{
			"masks every occurrence",
			"/user add name=a password=one; /user add name=b password=two",
			"two",
			true,
		},
		{
			"no masking for safe commands",
			"/system identity print",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeCommandForLog(tt.input)
			if tt.masked && !strings.Contains(result, "****") {
				t.Errorf("expected masked output to contain '****', got %q", result)
			}
			if !tt.masked && result != tt.input {
				t.Errorf("expected unchanged output, got %q", result)
			}
			if tt.contains != "" && strings.Contains(result, tt.contains) {
				t.Errorf("sanitized output should not contain %q, got %q", tt.contains, result)
			}
		})
	}
}

func TestSanitizeCommandForLog_KeepsRest(t *testing.T) {
	got := SanitizeCommandForLog("/user set admin password=hunter2 comment=ops")
	want := "/user set admin password=**** comment=ops"
	if got != want {
		t.Errorf("SanitizeCommandForLog() = %q, want %q", got, want)
	}
}

func TestRedactor(t *testing.T) {
	var r Redactor
	if got := r.Redact("nothing registered"); got != "nothing registered" {
		t.Errorf("zero Redactor changed input: %q", got)
	}

	r.Add("s3cr3t")
	r.Add("s3cr3t")
	r.Add("")

	got := r.Redact("login with s3cr3t failed, s3cr3t rejected")
	if strings.Contains(got, "s3cr3t") {
		t.Errorf("redacted output still contains secret: %q", got)
	}
	if got != "login with **** failed, **** rejected" {
		t.Errorf("unexpected redaction: %q", got)
	}
	if len(r.secrets) != 1 {
		t.Errorf("expected 1 registered secret, got %d", len(r.secrets))
	}
}

func TestRedactor_Nil(t *testing.T) {
	var r *Redactor
	if got := r.Redact("text"); got != "text" {
		t.Errorf("nil Redactor changed input: %q", got)
	}
}
