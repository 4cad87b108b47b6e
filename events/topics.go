package events

// Envelope version for every event this process emits. Bumping it is a
// breaking protocol change for UI clients.
const Version = "1"

// Call and participant lifecycle topics, named after the transport they
// originate from.
const (
	TopicCallState          = "daily.call.state"
	TopicParticipantFirst   = "daily.participant.first.join"
	TopicParticipantJoin    = "daily.participant.join"
	TopicParticipantLeave   = "daily.participant.leave"
	TopicParticipantIdent   = "daily.participant.identity"
	TopicParticipantsChange = "daily.participants.change"
)

// Bot lifecycle and conversation topics.
const (
	TopicSessionEnd      = "bot.session.end"
	TopicSpeakingStarted = "bot.speaking.started"
	TopicSpeakingStopped = "bot.speaking.stopped"
	TopicTranscript      = "bot.transcript"
	TopicGreeting        = "bot.conversation.greeting"
	TopicWrapup          = "bot.conversation.wrapup"
	TopicPacingBeat      = "bot.conversation.pacing.beat"
)

// Admin and context topics.
const (
	TopicAdminPromptMessage  = "admin.prompt.message"
	TopicAdminPromptResponse = "admin.prompt.response"
	TopicContextMessage      = "llm.context.message"
)

// Tool-event namespaces. Individual tools emit under these prefixes, for
// example "note.created" or "window.close".
var ToolNamespaces = []string{
	"note.", "window.", "browser.", "app.", "youtube.",
	"html.", "applet.", "experience.", "wonder.",
}

// TopicSpriteSummon is the one tool topic that is a full name rather than a
// namespace.
const TopicSpriteSummon = "sprite.summon"

// Topics returns the closed set of non-namespaced topic names. Stream
// endpoints subscribe to all of them.
func Topics() []string {
	return []string{
		TopicCallState,
		TopicParticipantFirst,
		TopicParticipantJoin,
		TopicParticipantLeave,
		TopicParticipantIdent,
		TopicParticipantsChange,
		TopicSessionEnd,
		TopicSpeakingStarted,
		TopicSpeakingStopped,
		TopicTranscript,
		TopicGreeting,
		TopicWrapup,
		TopicPacingBeat,
		TopicAdminPromptMessage,
		TopicAdminPromptResponse,
		TopicContextMessage,
		TopicSpriteSummon,
	}
}
