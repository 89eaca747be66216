// Package command provides the command registry, parser, and built-in
// command definitions.
package command

import "github.com/driftwood-mud/engine/internal/game/ids"

// Categories for organizing commands in help output.
const (
	CategoryMovement      = "movement"
	CategoryUI            = "ui"
	CategoryCommunication = "communication"
	CategoryItems         = "items"
	CategoryShop          = "shop"
	CategoryCombat        = "combat"
	CategoryWorld         = "world"
	CategorySocial        = "social"
	CategoryMail          = "mail"
	CategoryAdmin         = "admin"
)

// Kind identifies the command variant the router dispatches on.
type Kind int

// Command variants.
const (
	KindNoop Kind = iota
	KindUnknown
	KindInvalid

	KindMove
	KindRecall
	KindLook
	KindLookDir
	KindExits
	KindWho
	KindScore
	KindInventory
	KindEquipment
	KindHelp
	KindQuit
	KindPrompt

	KindSay
	KindTell
	KindGossip
	KindWhisper
	KindShout
	KindOoc
	KindPose

	KindGet
	KindDrop
	KindGive
	KindUse
	KindWear
	KindRemove

	KindList
	KindBuy
	KindSell
	KindBalance

	KindTalk
	KindDialogueChoice

	KindKill
	KindFlee
	KindCast
	KindSpells
	KindEffects
	KindDispel

	KindOpen
	KindClose
	KindUnlock
	KindSearch
	KindPut
	KindPull
	KindRead

	KindGroup
	KindGtell
	KindGuild
	KindGchat
	KindMail

	KindGoto
	KindTransfer
	KindSpawn
	KindShutdown
	KindSmite
	KindKick
	KindSetLevel
	KindPhase
)

// Command is one parsed input line. Kind selects the variant; the other
// fields carry its arguments and are meaningful only for kinds that use
// them.
type Command struct {
	// Kind selects the variant.
	Kind Kind
	// Raw is the original line, kept for Unknown.
	Raw string
	// Hint is the caller-facing usage hint, set for Invalid.
	Hint string
	// Dir is the direction for Move and LookDir.
	Dir ids.Direction
	// Keyword targets an item, mob, feature, spell, slot, or template.
	Keyword string
	// Target is a player name or cast target.
	Target string
	// Text is a message body or free-form remainder.
	Text string
	// Container is the container feature for get-from and put-in.
	Container string
	// Room is a room reference for goto, transfer, and spawn.
	Room string
	// Sub is the subcommand for group, guild, and mail.
	Sub string
	// N is a numeric argument: dialogue choice, mail index, or level.
	N int
}

// Spec defines a player-invocable command for the registry.
type Spec struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown in usage hints.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for help output.
	Category string
	// Kind is the variant the parser produces.
	Kind Kind
	// Staff restricts the command to staff players.
	Staff bool
}

// BuiltinSpecs returns all built-in commands for the game.
func BuiltinSpecs() []Spec {
	return []Spec{
		// Movement commands
		{Name: "north", Aliases: []string{"n"}, Usage: "north", Help: "Move north", Category: CategoryMovement, Kind: KindMove},
		{Name: "south", Aliases: []string{"s"}, Usage: "south", Help: "Move south", Category: CategoryMovement, Kind: KindMove},
		{Name: "east", Aliases: []string{"e"}, Usage: "east", Help: "Move east", Category: CategoryMovement, Kind: KindMove},
		{Name: "west", Aliases: []string{"w"}, Usage: "west", Help: "Move west", Category: CategoryMovement, Kind: KindMove},
		{Name: "northeast", Aliases: []string{"ne"}, Usage: "northeast", Help: "Move northeast", Category: CategoryMovement, Kind: KindMove},
		{Name: "northwest", Aliases: []string{"nw"}, Usage: "northwest", Help: "Move northwest", Category: CategoryMovement, Kind: KindMove},
		{Name: "southeast", Aliases: []string{"se"}, Usage: "southeast", Help: "Move southeast", Category: CategoryMovement, Kind: KindMove},
		{Name: "southwest", Aliases: []string{"sw"}, Usage: "southwest", Help: "Move southwest", Category: CategoryMovement, Kind: KindMove},
		{Name: "up", Aliases: []string{"u"}, Usage: "up", Help: "Move up", Category: CategoryMovement, Kind: KindMove},
		{Name: "down", Aliases: []string{"d"}, Usage: "down", Help: "Move down", Category: CategoryMovement, Kind: KindMove},
		{Name: "recall", Usage: "recall", Help: "Return to your recall point", Category: CategoryMovement, Kind: KindRecall},

		// UI commands
		{Name: "look", Aliases: []string{"l"}, Usage: "look [direction]", Help: "Look around, or peek at an adjacent room", Category: CategoryUI, Kind: KindLook},
		{Name: "exits", Aliases: []string{"ex"}, Usage: "exits", Help: "List available exits", Category: CategoryUI, Kind: KindExits},
		{Name: "who", Usage: "who", Help: "List online players", Category: CategoryUI, Kind: KindWho},
		{Name: "score", Usage: "score", Help: "Show your character sheet", Category: CategoryUI, Kind: KindScore},
		{Name: "inventory", Aliases: []string{"i", "inv"}, Usage: "inventory", Help: "Show carried items and gold", Category: CategoryUI, Kind: KindInventory},
		{Name: "equipment", Aliases: []string{"eq"}, Usage: "equipment", Help: "Show equipped items by slot", Category: CategoryUI, Kind: KindEquipment},
		{Name: "help", Aliases: []string{"?"}, Usage: "help [command]", Help: "Show available commands", Category: CategoryUI, Kind: KindHelp},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Help: "Disconnect from the game", Category: CategoryUI, Kind: KindQuit},
		{Name: "prompt", Usage: "prompt <format>", Help: "Set your prompt format", Category: CategoryUI, Kind: KindPrompt},

		// Communication commands
		{Name: "say", Aliases: []string{"'"}, Usage: "say <message>", Help: "Say something to the room", Category: CategoryCommunication, Kind: KindSay},
		{Name: "tell", Aliases: []string{"t"}, Usage: "tell <player> <message>", Help: "Send a private message, even across instances", Category: CategoryCommunication, Kind: KindTell},
		{Name: "gossip", Aliases: []string{"gs"}, Usage: "gossip <message>", Help: "Chat on the global channel", Category: CategoryCommunication, Kind: KindGossip},
		{Name: "whisper", Aliases: []string{"wh"}, Usage: "whisper <player> <message>", Help: "Whisper to someone in the room", Category: CategoryCommunication, Kind: KindWhisper},
		{Name: "shout", Aliases: []string{"sh"}, Usage: "shout <message>", Help: "Shout across the zone", Category: CategoryCommunication, Kind: KindShout},
		{Name: "ooc", Usage: "ooc <message>", Help: "Chat out of character", Category: CategoryCommunication, Kind: KindOoc},
		{Name: "pose", Aliases: []string{"po"}, Usage: "pose <text including your name>", Help: "Strike a pose described in your own words", Category: CategoryCommunication, Kind: KindPose},

		// Item commands
		{Name: "get", Aliases: []string{"take", "pickup", "pick"}, Usage: "get <item> [from <container>]", Help: "Pick up an item, optionally out of a container", Category: CategoryItems, Kind: KindGet},
		{Name: "drop", Usage: "drop <item>", Help: "Drop a carried item", Category: CategoryItems, Kind: KindDrop},
		{Name: "give", Usage: "give <item> <player>", Help: "Hand an item to someone in the room", Category: CategoryItems, Kind: KindGive},
		{Name: "use", Usage: "use <item>", Help: "Use a consumable item", Category: CategoryItems, Kind: KindUse},
		{Name: "wear", Aliases: []string{"equip"}, Usage: "wear <item>", Help: "Equip a wearable item", Category: CategoryItems, Kind: KindWear},
		{Name: "remove", Aliases: []string{"unequip"}, Usage: "remove <slot>", Help: "Unequip the item in a slot", Category: CategoryItems, Kind: KindRemove},

		// Shop commands
		{Name: "list", Aliases: []string{"shop"}, Usage: "list", Help: "List the shop's stock", Category: CategoryShop, Kind: KindList},
		{Name: "buy", Aliases: []string{"purchase"}, Usage: "buy <item>", Help: "Buy an item from the shop", Category: CategoryShop, Kind: KindBuy},
		{Name: "sell", Usage: "sell <item>", Help: "Sell a carried item to the shop", Category: CategoryShop, Kind: KindSell},
		{Name: "balance", Aliases: []string{"gold", "wealth"}, Usage: "balance", Help: "Show your gold", Category: CategoryShop, Kind: KindBalance},

		// Dialogue commands
		{Name: "talk", Usage: "talk <npc>", Help: "Start a conversation", Category: CategoryWorld, Kind: KindTalk},

		// Combat commands
		{Name: "kill", Usage: "kill <target>", Help: "Attack a mob", Category: CategoryCombat, Kind: KindKill},
		{Name: "flee", Usage: "flee", Help: "Attempt to flee combat", Category: CategoryCombat, Kind: KindFlee},
		{Name: "cast", Aliases: []string{"c"}, Usage: "cast <spell> [target]", Help: "Cast a spell", Category: CategoryCombat, Kind: KindCast},
		{Name: "spells", Aliases: []string{"abilities"}, Usage: "spells", Help: "List spells you know", Category: CategoryCombat, Kind: KindSpells},
		{Name: "effects", Aliases: []string{"buffs", "debuffs"}, Usage: "effects", Help: "Show active effects", Category: CategoryCombat, Kind: KindEffects},
		{Name: "dispel", Usage: "dispel <effect>", Help: "Remove one of your effects", Category: CategoryCombat, Kind: KindDispel},

		// World feature commands
		{Name: "open", Usage: "open <feature>", Help: "Open a door or container", Category: CategoryWorld, Kind: KindOpen},
		{Name: "close", Usage: "close <feature>", Help: "Close a door or container", Category: CategoryWorld, Kind: KindClose},
		{Name: "unlock", Usage: "unlock <feature>", Help: "Unlock a locked door", Category: CategoryWorld, Kind: KindUnlock},
		{Name: "search", Usage: "search <container>", Help: "Look inside a container", Category: CategoryWorld, Kind: KindSearch},
		{Name: "put", Usage: "put <item> in <container>", Help: "Store an item in a container", Category: CategoryWorld, Kind: KindPut},
		{Name: "pull", Usage: "pull <lever>", Help: "Pull a lever", Category: CategoryWorld, Kind: KindPull},
		{Name: "read", Usage: "read <sign>", Help: "Read a sign", Category: CategoryWorld, Kind: KindRead},

		// Group and guild commands
		{Name: "group", Usage: "group invite|accept|leave|kick|list", Help: "Manage your adventuring group", Category: CategorySocial, Kind: KindGroup},
		{Name: "gtell", Aliases: []string{"gt"}, Usage: "gtell <message>", Help: "Talk to your group", Category: CategorySocial, Kind: KindGtell},
		{Name: "guild", Usage: "guild create|invite|accept|leave|kick|promote|demote|disband|motd|roster|info", Help: "Manage your guild", Category: CategorySocial, Kind: KindGuild},
		{Name: "gchat", Usage: "gchat <message>", Help: "Talk to your guild", Category: CategorySocial, Kind: KindGchat},

		// Mail commands
		{Name: "mail", Usage: "mail list|read <n>|delete <n>|send <player>|abort", Help: "Read and send mail", Category: CategoryMail, Kind: KindMail},

		// Admin commands
		{Name: "goto", Usage: "goto <room>", Help: "Teleport yourself to a room", Category: CategoryAdmin, Kind: KindGoto, Staff: true},
		{Name: "transfer", Usage: "transfer <player> <room>", Help: "Teleport a player to a room", Category: CategoryAdmin, Kind: KindTransfer, Staff: true},
		{Name: "spawn", Usage: "spawn <template> [room]", Help: "Spawn a mob", Category: CategoryAdmin, Kind: KindSpawn, Staff: true},
		{Name: "shutdown", Usage: "shutdown", Help: "Stop the engine", Category: CategoryAdmin, Kind: KindShutdown, Staff: true},
		{Name: "smite", Usage: "smite <target>", Help: "Destroy a mob outright", Category: CategoryAdmin, Kind: KindSmite, Staff: true},
		{Name: "kick", Usage: "kick <player>", Help: "Disconnect a player", Category: CategoryAdmin, Kind: KindKick, Staff: true},
		{Name: "setlevel", Usage: "setlevel <player> <level>", Help: "Set a player's level", Category: CategoryAdmin, Kind: KindSetLevel, Staff: true},
		{Name: "phase", Aliases: []string{"layer"}, Usage: "phase [instance]", Help: "List instances or move to one", Category: CategoryAdmin, Kind: KindPhase, Staff: true},
	}
}
