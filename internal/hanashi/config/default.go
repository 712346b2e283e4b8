package config

// DefaultYAML is written to disk when no configuration file exists.
const DefaultYAML = `# OpenAI-compatible chat completions endpoint
api_url: "https://api.openai.com/v1/chat/completions"

# API key (replace with a valid key, or set HANASHI_API_KEY)
api_key: "sk-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"

# System prompt sent with every reply
system_prompt: "You are a friendly and helpful AI assistant."

# Template used to refresh a participant's impression.
# Placeholders: {user_messages} (bulleted recent messages), {previous_impression}
impression_prompt: |
  Please generate a concise impression description (max 100 characters) for the user based on their recent messages and previous impression (if any).
  Previous impression: {previous_impression}
  Recent messages:
  {user_messages}
  Generated impression:

# Probability (0.0-1.0) of joining an idle conversation on any message
base_reply_probability: 0.05

# Minimum seconds between two idle replies in the same room
min_reply_interval: 300

# Token ceiling for a single reply
max_tokens: 1000

chat_model: "gpt-3.5-turbo"
impression_model: "gpt-3.5-turbo"

# Number of recent messages given to the model
context_length: 30

# A participant needs at least this many messages in the window to get an
# impression refresh
impression_min_messages: 5

reply_timeout: 60s

impression:
  max_tokens: 150
  temperature: 0.6
  timeout: 45s
  queue_size: 64
  rate_per_minute: 30

matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@hanashi:example.org"
  access_token: ""
  rooms: []
  admin_senders: []

database_path: "data/hanashi/hanashi.db"
http_addr: ""
log_level: "info"
log_format: "text"
`
