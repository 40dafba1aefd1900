package scrape

import "bytes"

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// challengeMaxBytes bounds the page size for marker checks; long pages that
// mention a captcha in passing are still real content.
const challengeMaxBytes = 64 * 1024

// DetectBlock checks a downloaded HTML body for signs of anti-bot protection.
func DetectBlock(body []byte) (bool, BlockType) {
	if len(body) > challengeMaxBytes {
		return false, BlockNone
	}
	lower := bytes.ToLower(body)
	has := func(s string) bool { return bytes.Contains(lower, []byte(s)) }

	if has("checking your browser") ||
		has("cf-browser-verification") ||
		has("cloudflare") && has("challenge") {
		return true, BlockCloudflare
	}

	if has("g-recaptcha") || has("h-captcha") || has("captcha-delivery") {
		return true, BlockCaptcha
	}

	if len(body) < 2000 {
		if has("<noscript") && has("javascript") {
			return true, BlockJSShell
		}
		if has(`meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
