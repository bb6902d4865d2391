package embedding

import "engram/internal/logging"

// ContentType identifies what kind of text is being embedded (ingestion vs.
// query vs. chat turn). SelectTaskType maps it to a GenAI task type;
// GenAIEngine does not call it and sends no task type with its requests.
type ContentType string

const (
	ContentTypeCapture ContentType = "capture" // screen/audio/dictation text being ingested
	ContentTypeQuery   ContentType = "query"   // a hybrid-search query
	ContentTypeChat    ContentType = "chat"    // a chat message
)

// SelectTaskType picks the GenAI task type for a given content type. Capture
// text is treated as a retrieval document (it will later be searched
// against); queries and chat turns are treated as retrieval queries.
func SelectTaskType(contentType ContentType) string {
	var taskType string
	switch contentType {
	case ContentTypeCapture:
		taskType = "RETRIEVAL_DOCUMENT"
	case ContentTypeQuery, ContentTypeChat:
		taskType = "RETRIEVAL_QUERY"
	default:
		taskType = "SEMANTIC_SIMILARITY"
	}
	logging.EmbeddingDebug("SelectTaskType: content_type=%s -> task_type=%s", contentType, taskType)
	return taskType
}
