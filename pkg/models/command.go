package models

// Command enumerates every command kind the bot understands. Each value
// carries its canonical log slug; Description returns the human-readable
// form used in tracking events.
type Command string

const (
	CommandStart           Command = "start"
	CommandInfo            Command = "info"
	CommandNoLimits        Command = "no_limits"
	CommandHelpCatalogLink Command = "help_catalog_link"
	CommandAnalyseCategory Command = "analyse_category"
	CommandWBCatalog       Command = "wb_catalog"
	CommandUnknown         Command = "rnd"
)

// Slug returns the value stored in the command log.
func (c Command) Slug() string {
	return string(c)
}

// Description returns the human-readable event description.
func (c Command) Description() string {
	switch c {
	case CommandStart:
		return "Bot started"
	case CommandInfo:
		return "Requested service info"
	case CommandNoLimits:
		return "Asked how to lift limits"
	case CommandHelpCatalogLink:
		return "Asked how to send a catalog link"
	case CommandAnalyseCategory:
		return "Opened category analysis help"
	case CommandWBCatalog:
		return "Sent WB catalog link"
	default:
		return "Unknown command"
	}
}
