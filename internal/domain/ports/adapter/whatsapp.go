package adapter

import "context"

// WhatsAppAdapter is the port for the WhatsApp bridge. Only the reaction
// send is needed by the pipeline (document-processing progress feedback);
// message delivery itself is handled by the bridge polling the job status.
type WhatsAppAdapter interface {
	SendReaction(ctx context.Context, conversationJID, messageID, emoji string) error
}
