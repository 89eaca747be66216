package command

import (
	"strconv"
	"strings"

	"github.com/driftwood-mud/engine/internal/game/ids"
)

// Parser turns raw input lines into Commands using a Registry for name and
// alias resolution.
type Parser struct {
	reg *Registry
}

// NewParser creates a Parser over the given registry.
func NewParser(reg *Registry) *Parser {
	return &Parser{reg: reg}
}

// Parse converts one input line into a Command. Whitespace is trimmed and
// collapsed. Blank input is Noop; an unrecognized first token is Unknown
// carrying the trimmed line; a recognized command with malformed arguments
// is Invalid carrying a usage hint.
func (p *Parser) Parse(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: KindNoop}
	}

	// The apostrophe prefix is say without a separating space.
	if strings.HasPrefix(line, "'") {
		rest := strings.TrimSpace(line[1:])
		if rest == "" {
			return p.invalid("say")
		}
		return Command{Kind: KindSay, Text: collapse(rest)}
	}

	fields := strings.Fields(line)
	head := strings.ToLower(fields[0])
	args := fields[1:]

	// Bare digits route to the active dialogue; only 1..9 are choices.
	if isDigits(head) {
		n, err := strconv.Atoi(head)
		if err == nil && n >= 1 && n <= 9 && len(args) == 0 {
			return Command{Kind: KindDialogueChoice, N: n}
		}
		return Command{Kind: KindUnknown, Raw: line}
	}

	spec, ok := p.reg.Resolve(head)
	if !ok {
		return Command{Kind: KindUnknown, Raw: line}
	}

	switch spec.Kind {
	case KindMove:
		dir, _ := ids.ParseDirection(spec.Name)
		return Command{Kind: KindMove, Dir: dir}

	case KindLook:
		if len(args) == 0 {
			return Command{Kind: KindLook}
		}
		if dir, ok := ids.ParseDirection(strings.ToLower(args[0])); ok && len(args) == 1 {
			return Command{Kind: KindLookDir, Dir: dir}
		}
		return p.invalid("look")

	case KindHelp:
		cmd := Command{Kind: KindHelp}
		if len(args) > 0 {
			cmd.Keyword = strings.ToLower(args[0])
		}
		return cmd

	case KindPrompt:
		if len(args) == 0 {
			return p.invalid("prompt")
		}
		return Command{Kind: KindPrompt, Text: strings.Join(args, " ")}

	case KindSay, KindGossip, KindShout, KindOoc, KindGtell, KindGchat, KindPose:
		if len(args) == 0 {
			return p.invalid(spec.Name)
		}
		return Command{Kind: spec.Kind, Text: strings.Join(args, " ")}

	case KindTell, KindWhisper:
		if len(args) < 2 {
			return p.invalid(spec.Name)
		}
		return Command{Kind: spec.Kind, Target: args[0], Text: strings.Join(args[1:], " ")}

	case KindGet:
		// "pick up sword" arrives via the "pick" alias.
		if head == "pick" && len(args) > 0 && strings.EqualFold(args[0], "up") {
			args = args[1:]
		}
		if len(args) == 0 {
			return p.invalid("get")
		}
		for i := 1; i < len(args)-1; i++ {
			if strings.EqualFold(args[i], "from") {
				return Command{
					Kind:      KindGet,
					Keyword:   strings.ToLower(strings.Join(args[:i], " ")),
					Container: strings.ToLower(strings.Join(args[i+1:], " ")),
				}
			}
		}
		return Command{Kind: KindGet, Keyword: strings.ToLower(strings.Join(args, " "))}

	case KindPut:
		for i := 1; i < len(args)-1; i++ {
			if strings.EqualFold(args[i], "in") {
				return Command{
					Kind:      KindPut,
					Keyword:   strings.ToLower(strings.Join(args[:i], " ")),
					Container: strings.ToLower(strings.Join(args[i+1:], " ")),
				}
			}
		}
		return p.invalid("put")

	case KindGive:
		if len(args) < 2 {
			return p.invalid("give")
		}
		return Command{
			Kind:    KindGive,
			Keyword: strings.ToLower(strings.Join(args[:len(args)-1], " ")),
			Target:  args[len(args)-1],
		}

	case KindDrop, KindUse, KindWear, KindBuy, KindSell, KindTalk, KindKill,
		KindDispel, KindOpen, KindClose, KindUnlock, KindSearch, KindPull, KindRead:
		if len(args) == 0 {
			return p.invalid(spec.Name)
		}
		return Command{Kind: spec.Kind, Keyword: strings.ToLower(strings.Join(args, " "))}

	case KindRemove:
		if len(args) != 1 {
			return p.invalid("remove")
		}
		return Command{Kind: KindRemove, Keyword: strings.ToLower(args[0])}

	case KindCast:
		if len(args) == 0 {
			return p.invalid("cast")
		}
		cmd := Command{Kind: KindCast, Keyword: strings.ToLower(args[0])}
		if len(args) > 1 {
			cmd.Target = strings.Join(args[1:], " ")
		}
		return cmd

	case KindGroup:
		return p.parseGroup(args)

	case KindGuild:
		return p.parseGuild(args)

	case KindMail:
		return p.parseMail(args)

	case KindGoto:
		if len(args) != 1 {
			return p.invalid("goto")
		}
		return Command{Kind: KindGoto, Room: args[0]}

	case KindTransfer:
		if len(args) != 2 {
			return p.invalid("transfer")
		}
		return Command{Kind: KindTransfer, Target: args[0], Room: args[1]}

	case KindSpawn:
		if len(args) < 1 || len(args) > 2 {
			return p.invalid("spawn")
		}
		cmd := Command{Kind: KindSpawn, Keyword: strings.ToLower(args[0])}
		if len(args) == 2 {
			cmd.Room = args[1]
		}
		return cmd

	case KindSmite, KindKick:
		if len(args) != 1 {
			return p.invalid(spec.Name)
		}
		return Command{Kind: spec.Kind, Target: args[0]}

	case KindSetLevel:
		if len(args) != 2 {
			return p.invalid("setlevel")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return p.invalid("setlevel")
		}
		return Command{Kind: KindSetLevel, Target: args[0], N: n}

	case KindPhase:
		cmd := Command{Kind: KindPhase}
		if len(args) > 0 {
			cmd.Target = args[0]
		}
		return cmd

	default:
		// Argument-free commands tolerate trailing noise.
		return Command{Kind: spec.Kind}
	}
}

func (p *Parser) parseGroup(args []string) Command {
	if len(args) == 0 {
		return p.invalid("group")
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]
	switch sub {
	case "inv":
		sub = "invite"
	case "acc":
		sub = "accept"
	}
	switch sub {
	case "invite", "kick":
		if len(rest) != 1 {
			return p.invalid("group")
		}
		return Command{Kind: KindGroup, Sub: sub, Target: rest[0]}
	case "accept", "leave", "list":
		return Command{Kind: KindGroup, Sub: sub}
	default:
		return p.invalid("group")
	}
}

func (p *Parser) parseGuild(args []string) Command {
	if len(args) == 0 {
		return p.invalid("guild")
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]
	switch sub {
	case "create":
		if len(rest) == 0 {
			return p.invalid("guild")
		}
		return Command{Kind: KindGuild, Sub: sub, Text: strings.Join(rest, " ")}
	case "invite", "kick", "promote", "demote":
		if len(rest) != 1 {
			return p.invalid("guild")
		}
		return Command{Kind: KindGuild, Sub: sub, Target: rest[0]}
	case "motd":
		return Command{Kind: KindGuild, Sub: sub, Text: strings.Join(rest, " ")}
	case "accept", "leave", "disband", "roster", "info":
		return Command{Kind: KindGuild, Sub: sub}
	default:
		return p.invalid("guild")
	}
}

func (p *Parser) parseMail(args []string) Command {
	if len(args) == 0 {
		return p.invalid("mail")
	}
	sub := strings.ToLower(args[0])
	rest := args[1:]
	switch sub {
	case "list", "abort":
		return Command{Kind: KindMail, Sub: sub}
	case "read", "delete":
		if len(rest) != 1 {
			return p.invalid("mail")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return p.invalid("mail")
		}
		return Command{Kind: KindMail, Sub: sub, N: n}
	case "send":
		if len(rest) != 1 {
			return p.invalid("mail")
		}
		return Command{Kind: KindMail, Sub: sub, Target: rest[0]}
	default:
		return p.invalid("mail")
	}
}

func (p *Parser) invalid(name string) Command {
	hint := name
	if spec, ok := p.reg.Resolve(name); ok {
		hint = spec.Usage
	}
	return Command{Kind: KindInvalid, Hint: "Usage: " + hint}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
