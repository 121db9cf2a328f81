package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		SelectedModel:  "",
		Language:       "en",
		RequestTimeout: 120,
		StallTimeout:   60,
		Security: SecurityConfig{
			Method: string(SecurityPlainText),
		},
		Models: make(map[string]ModelInstance),
	}
}

func GenerateSystemConfigTemplate() string {
	return `# askai System Configuration
# Location: ~/.config/askai/settings.toml
# This file uses TOML format: https://toml.io

# Directory where history, credentials and user config are stored
data_directory = "~/.local/share/askai"
`
}

func GenerateUserConfigTemplate() string {
	return `# askai User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Id of the [models.<id>] entry used by default (set with "askai models select")
selected_model = ""

# Interface language for error messages and answers (en, zh, de, fr, es)
language = "en"

# Seconds before a non-streaming request is abandoned
request_timeout = 120

# Seconds a stream may stay silent before one recovery attempt is made
stall_timeout = 60

# Prompt templates (optional). Placeholders:
#   {title} {author} {publisher} {pubyear} {language} {series} {query}
#   multi-book template: {books_metadata} {query}
# template = ""
# multi_book_template = ""
# random_question_template = ""

[security]
# "plaintext" (credentials.toml) or "ssh_key" (credentials.enc)
method = "plaintext"
# ssh_key_path = "~/.ssh/askai_ed25519"

# Configured AI backends are added with "askai models add", e.g.:
# [models.a1b2c3d4]
# provider = "openai"
# model = "gpt-4o-mini"
# enable_streaming = true
`
}
