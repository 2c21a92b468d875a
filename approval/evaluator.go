package approval

import (
	"path/filepath"
	"strings"

	"taskbot/gateway"
	"taskbot/model"
)

// Verdict is the evaluator's decision. Rejections are silent toward the
// submitter; Reason exists for logs and metrics.
type Verdict struct {
	Accept bool
	Reason string
}

func reject(reason string) Verdict { return Verdict{Reason: reason} }

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Evaluate decides whether a message counts as a proof submission for the
// given record. rec may be nil when the channel has no task. Pure, no side
// effects.
func Evaluate(ev gateway.MessageEvent, rec *model.TaskRecord) Verdict {
	if ev.BotAuthor {
		return reject("bot author")
	}
	if rec == nil {
		return reject("no task for channel")
	}
	if rec.State == model.StateArchived {
		return reject("task archived")
	}
	for _, att := range ev.Attachments {
		if isImage(att) {
			return Verdict{Accept: true}
		}
	}
	return reject("no image attachment")
}

// isImage trusts the declared content type when present and falls back to
// the filename extension, since the platform may omit or mangle the type.
func isImage(att gateway.Attachment) bool {
	if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(att.Filename))
	return imageExtensions[ext]
}
