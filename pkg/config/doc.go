/*
Package config loads carebook client configuration.

Sources, lowest precedence first:

 1. Built-in defaults (backend at http://localhost:8000/api, data in ~/.carebook)
 2. YAML file, ~/.carebook/config.yaml unless --config names another
 3. A .env file in the working directory
 4. CAREBOOK_* environment variables
 5. Command-line flags, applied by the CLI after Load returns

Example file:

	api_url: https://book.example.com/api
	data_dir: ~/.carebook
	log_level: info
	http_timeout: 30s
	rate_limit: 5
	rate_burst: 10

http_timeout of zero leaves the transport default in place. rate_limit of
zero disables client-side pacing.
*/
package config
