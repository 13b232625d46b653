package config

const (
	DefaultEnvFile = ".env"

	DefaultUserAgent       = "readwise-scripts"
	DefaultReadwiseAPIURL  = "https://readwise.io/api/v2"
	DefaultBetterBibTeXURL = "http://127.0.0.1:23119"
	DefaultUploadsSite     = "https://blog.iany.me"
)
