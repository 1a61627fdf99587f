// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"github.com/holomush/hookbridge/internal/binding"
)

// Server kinds fired by the runner itself.
const (
	ServerOnUpdate        binding.Kind = 13
	ServerOnStartup       binding.Kind = 14
	ServerOnShutdown      binding.Kind = 15
	ServerOnLuaStateClose binding.Kind = 16
	ServerOnLuaStateOpen  binding.Kind = 33
)

// Frequently fired kinds of the other families.
const (
	PlayerOnLogin         binding.Kind = 3
	PlayerOnLogout        binding.Kind = 4
	PlayerOnChat          binding.Kind = 18
	CreatureOnEnterCombat binding.Kind = 1
	CreatureOnDied        binding.Kind = 4
	CreatureOnSpawn       binding.Kind = 5
	CreatureOnDamageTaken binding.Kind = 9
	GossipOnHello         binding.Kind = 1
	GossipOnSelect        binding.Kind = 2
	PacketOnReceive       binding.Kind = 5
	PacketOnSend          binding.Kind = 7
)

var (
	globalOnly  = []binding.Shape{binding.ShapeGlobal}
	globalEntry = []binding.Shape{binding.ShapeGlobal, binding.ShapeEntry}
	allShapes   = []binding.Shape{binding.ShapeGlobal, binding.ShapeEntry, binding.ShapeUnique}
)

// Event families.
var (
	Server           = newFamily("server", SuppressOnFalse, globalOnly, serverKinds)
	Player           = newFamily("player", SuppressOnFalse, globalOnly, playerKinds)
	Guild            = newFamily("guild", SuppressOnFalse, globalOnly, guildKinds)
	Group            = newFamily("group", SuppressOnFalse, globalOnly, groupKinds)
	BattleGround     = newFamily("battleground", SuppressOnFalse, globalOnly, battlegroundKinds)
	Ticket           = newFamily("ticket", SuppressOnFalse, globalOnly, ticketKinds)
	Packet           = newFamily("packet", SuppressOnFalse, globalEntry, packetKinds)
	Creature         = newFamily("creature", SuppressOnTrue, allShapes, creatureKinds)
	CreatureGossip   = newFamily("creature_gossip", SuppressOnFalse, globalEntry, gossipKinds)
	GameObject       = newFamily("gameobject", SuppressOnTrue, globalEntry, gameObjectKinds)
	GameObjectGossip = newFamily("gameobject_gossip", SuppressOnFalse, globalEntry, gossipKinds)
	Item             = newFamily("item", SuppressOnTrue, globalEntry, itemKinds)
	ItemGossip       = newFamily("item_gossip", SuppressOnFalse, globalEntry, gossipKinds)
	PlayerGossip     = newFamily("player_gossip", SuppressOnFalse, globalEntry, gossipKinds)
	Map              = newFamily("map", SuppressOnFalse, globalEntry, instanceKinds)
	Instance         = newFamily("instance", SuppressOnFalse, globalEntry, instanceKinds)
	Spell            = newFamily("spell", SuppressOnFalse, globalEntry, spellKinds)
)

var all = []*Family{
	Server, Player, Guild, Group, BattleGround, Ticket, Packet,
	Creature, CreatureGossip, GameObject, GameObjectGossip,
	Item, ItemGossip, PlayerGossip, Map, Instance, Spell,
}

// All returns every family in a stable order.
func All() []*Family {
	out := make([]*Family, len(all))
	copy(out, all)
	return out
}

// Lookup finds a family by name.
func Lookup(name string) (*Family, bool) {
	for _, f := range all {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

var serverKinds = []KindInfo{
	{1, "SERVER_EVENT_ON_NETWORK_START"},
	{2, "SERVER_EVENT_ON_NETWORK_STOP"},
	{3, "SERVER_EVENT_ON_SOCKET_OPEN"},
	{4, "SERVER_EVENT_ON_SOCKET_CLOSE"},
	{5, "SERVER_EVENT_ON_PACKET_RECEIVE"},
	{6, "SERVER_EVENT_ON_PACKET_RECEIVE_UNKNOWN"},
	{7, "SERVER_EVENT_ON_PACKET_SEND"},
	{8, "WORLD_EVENT_ON_OPEN_STATE_CHANGE"},
	{9, "WORLD_EVENT_ON_CONFIG_LOAD"},
	{11, "WORLD_EVENT_ON_SHUTDOWN_INIT"},
	{12, "WORLD_EVENT_ON_SHUTDOWN_CANCEL"},
	{13, "WORLD_EVENT_ON_UPDATE"},
	{14, "WORLD_EVENT_ON_STARTUP"},
	{15, "WORLD_EVENT_ON_SHUTDOWN"},
	{16, "ELUNA_EVENT_ON_LUA_STATE_CLOSE"},
	{17, "MAP_EVENT_ON_CREATE"},
	{18, "MAP_EVENT_ON_DESTROY"},
	{19, "MAP_EVENT_ON_GRID_LOAD"},
	{20, "MAP_EVENT_ON_GRID_UNLOAD"},
	{21, "MAP_EVENT_ON_PLAYER_ENTER"},
	{22, "MAP_EVENT_ON_PLAYER_LEAVE"},
	{23, "MAP_EVENT_ON_UPDATE"},
	{24, "TRIGGER_EVENT_ON_TRIGGER"},
	{25, "WEATHER_EVENT_ON_CHANGE"},
	{26, "AUCTION_EVENT_ON_ADD"},
	{27, "AUCTION_EVENT_ON_REMOVE"},
	{28, "AUCTION_EVENT_ON_SUCCESSFUL"},
	{29, "AUCTION_EVENT_ON_EXPIRE"},
	{30, "ADDON_EVENT_ON_MESSAGE"},
	{31, "WORLD_EVENT_ON_DELETE_CREATURE"},
	{32, "WORLD_EVENT_ON_DELETE_GAMEOBJECT"},
	{33, "ELUNA_EVENT_ON_LUA_STATE_OPEN"},
	{34, "GAME_EVENT_START"},
	{35, "GAME_EVENT_STOP"},
}

var playerKinds = []KindInfo{
	{1, "PLAYER_EVENT_ON_CHARACTER_CREATE"},
	{2, "PLAYER_EVENT_ON_CHARACTER_DELETE"},
	{3, "PLAYER_EVENT_ON_LOGIN"},
	{4, "PLAYER_EVENT_ON_LOGOUT"},
	{5, "PLAYER_EVENT_ON_SPELL_CAST"},
	{6, "PLAYER_EVENT_ON_KILL_PLAYER"},
	{7, "PLAYER_EVENT_ON_KILL_CREATURE"},
	{8, "PLAYER_EVENT_ON_KILLED_BY_CREATURE"},
	{9, "PLAYER_EVENT_ON_DUEL_REQUEST"},
	{10, "PLAYER_EVENT_ON_DUEL_START"},
	{11, "PLAYER_EVENT_ON_DUEL_END"},
	{12, "PLAYER_EVENT_ON_GIVE_XP"},
	{13, "PLAYER_EVENT_ON_LEVEL_CHANGE"},
	{14, "PLAYER_EVENT_ON_MONEY_CHANGE"},
	{15, "PLAYER_EVENT_ON_REPUTATION_CHANGE"},
	{16, "PLAYER_EVENT_ON_TALENTS_CHANGE"},
	{17, "PLAYER_EVENT_ON_TALENTS_RESET"},
	{18, "PLAYER_EVENT_ON_CHAT"},
	{19, "PLAYER_EVENT_ON_WHISPER"},
	{20, "PLAYER_EVENT_ON_GROUP_CHAT"},
	{21, "PLAYER_EVENT_ON_GUILD_CHAT"},
	{22, "PLAYER_EVENT_ON_CHANNEL_CHAT"},
	{23, "PLAYER_EVENT_ON_EMOTE"},
	{24, "PLAYER_EVENT_ON_TEXT_EMOTE"},
	{25, "PLAYER_EVENT_ON_SAVE"},
	{26, "PLAYER_EVENT_ON_BIND_TO_INSTANCE"},
	{27, "PLAYER_EVENT_ON_UPDATE_ZONE"},
	{28, "PLAYER_EVENT_ON_MAP_CHANGE"},
	{29, "PLAYER_EVENT_ON_EQUIP"},
	{30, "PLAYER_EVENT_ON_FIRST_LOGIN"},
	{31, "PLAYER_EVENT_ON_CAN_USE_ITEM"},
	{32, "PLAYER_EVENT_ON_LOOT_ITEM"},
	{33, "PLAYER_EVENT_ON_ENTER_COMBAT"},
	{34, "PLAYER_EVENT_ON_LEAVE_COMBAT"},
	{35, "PLAYER_EVENT_ON_REPOP"},
	{36, "PLAYER_EVENT_ON_RESURRECT"},
	{37, "PLAYER_EVENT_ON_LOOT_MONEY"},
	{38, "PLAYER_EVENT_ON_QUEST_ABANDON"},
	{39, "PLAYER_EVENT_ON_LEARN_TALENTS"},
	{42, "PLAYER_EVENT_ON_COMMAND"},
	{43, "PLAYER_EVENT_ON_PET_ADDED_TO_WORLD"},
	{44, "PLAYER_EVENT_ON_LEARN_SPELL"},
	{45, "PLAYER_EVENT_ON_ACHIEVEMENT_COMPLETE"},
	{46, "PLAYER_EVENT_ON_FFAPVP_CHANGE"},
	{47, "PLAYER_EVENT_ON_UPDATE_AREA"},
	{48, "PLAYER_EVENT_ON_CAN_INIT_TRADE"},
	{49, "PLAYER_EVENT_ON_CAN_SEND_MAIL"},
	{50, "PLAYER_EVENT_ON_CAN_JOIN_LFG"},
	{51, "PLAYER_EVENT_ON_QUEST_REWARD_ITEM"},
	{52, "PLAYER_EVENT_ON_CREATE_ITEM"},
	{53, "PLAYER_EVENT_ON_STORE_NEW_ITEM"},
	{54, "PLAYER_EVENT_ON_COMPLETE_QUEST"},
	{55, "PLAYER_EVENT_ON_CAN_GROUP_INVITE"},
	{56, "PLAYER_EVENT_ON_GROUP_ROLL_REWARD_ITEM"},
	{57, "PLAYER_EVENT_ON_BG_DESERTION"},
	{58, "PLAYER_EVENT_ON_PET_KILL"},
	{59, "PLAYER_EVENT_ON_CAN_RESURRECT"},
	{60, "PLAYER_EVENT_ON_CAN_UPDATE_SKILL"},
	{61, "PLAYER_EVENT_ON_BEFORE_UPDATE_SKILL"},
	{62, "PLAYER_EVENT_ON_UPDATE_SKILL"},
}

var guildKinds = []KindInfo{
	{1, "GUILD_EVENT_ON_ADD_MEMBER"},
	{2, "GUILD_EVENT_ON_REMOVE_MEMBER"},
	{3, "GUILD_EVENT_ON_MOTD_CHANGE"},
	{4, "GUILD_EVENT_ON_INFO_CHANGE"},
	{5, "GUILD_EVENT_ON_CREATE"},
	{6, "GUILD_EVENT_ON_DISBAND"},
	{7, "GUILD_EVENT_ON_MONEY_WITHDRAW"},
	{8, "GUILD_EVENT_ON_MONEY_DEPOSIT"},
	{9, "GUILD_EVENT_ON_ITEM_MOVE"},
	{10, "GUILD_EVENT_ON_EVENT"},
	{11, "GUILD_EVENT_ON_BANK_EVENT"},
}

var groupKinds = []KindInfo{
	{1, "GROUP_EVENT_ON_MEMBER_ADD"},
	{2, "GROUP_EVENT_ON_MEMBER_INVITE"},
	{3, "GROUP_EVENT_ON_MEMBER_REMOVE"},
	{4, "GROUP_EVENT_ON_LEADER_CHANGE"},
	{5, "GROUP_EVENT_ON_DISBAND"},
	{6, "GROUP_EVENT_ON_CREATE"},
}

var battlegroundKinds = []KindInfo{
	{1, "BG_EVENT_ON_START"},
	{2, "BG_EVENT_ON_END"},
	{3, "BG_EVENT_ON_CREATE"},
	{4, "BG_EVENT_ON_PRE_DESTROY"},
}

var packetKinds = []KindInfo{
	{5, "PACKET_EVENT_ON_PACKET_RECEIVE"},
	{6, "PACKET_EVENT_ON_PACKET_RECEIVE_UNKNOWN"},
	{7, "PACKET_EVENT_ON_PACKET_SEND"},
}

var creatureKinds = []KindInfo{
	{1, "CREATURE_EVENT_ON_ENTER_COMBAT"},
	{2, "CREATURE_EVENT_ON_LEAVE_COMBAT"},
	{3, "CREATURE_EVENT_ON_TARGET_DIED"},
	{4, "CREATURE_EVENT_ON_DIED"},
	{5, "CREATURE_EVENT_ON_SPAWN"},
	{6, "CREATURE_EVENT_ON_REACH_WP"},
	{7, "CREATURE_EVENT_ON_AIUPDATE"},
	{8, "CREATURE_EVENT_ON_RECEIVE_EMOTE"},
	{9, "CREATURE_EVENT_ON_DAMAGE_TAKEN"},
	{10, "CREATURE_EVENT_ON_PRE_COMBAT"},
	{12, "CREATURE_EVENT_ON_OWNER_ATTACKED"},
	{13, "CREATURE_EVENT_ON_OWNER_ATTACKED_AT"},
	{14, "CREATURE_EVENT_ON_HIT_BY_SPELL"},
	{15, "CREATURE_EVENT_ON_SPELL_HIT_TARGET"},
	{19, "CREATURE_EVENT_ON_JUST_SUMMONED_CREATURE"},
	{20, "CREATURE_EVENT_ON_SUMMONED_CREATURE_DESPAWN"},
	{21, "CREATURE_EVENT_ON_SUMMONED_CREATURE_DIED"},
	{22, "CREATURE_EVENT_ON_SUMMONED"},
	{23, "CREATURE_EVENT_ON_RESET"},
	{24, "CREATURE_EVENT_ON_REACH_HOME"},
	{26, "CREATURE_EVENT_ON_CORPSE_REMOVED"},
	{27, "CREATURE_EVENT_ON_MOVE_IN_LOS"},
	{30, "CREATURE_EVENT_ON_DUMMY_EFFECT"},
	{31, "CREATURE_EVENT_ON_QUEST_ACCEPT"},
	{34, "CREATURE_EVENT_ON_QUEST_REWARD"},
	{35, "CREATURE_EVENT_ON_DIALOG_STATUS"},
	{36, "CREATURE_EVENT_ON_ADD"},
	{37, "CREATURE_EVENT_ON_REMOVE"},
}

// gossipKinds is shared by every gossip family.
var gossipKinds = []KindInfo{
	{1, "GOSSIP_EVENT_ON_HELLO"},
	{2, "GOSSIP_EVENT_ON_SELECT"},
}

var gameObjectKinds = []KindInfo{
	{1, "GAMEOBJECT_EVENT_ON_AIUPDATE"},
	{2, "GAMEOBJECT_EVENT_ON_SPAWN"},
	{3, "GAMEOBJECT_EVENT_ON_DUMMY_EFFECT"},
	{4, "GAMEOBJECT_EVENT_ON_QUEST_ACCEPT"},
	{5, "GAMEOBJECT_EVENT_ON_QUEST_REWARD"},
	{6, "GAMEOBJECT_EVENT_ON_DIALOG_STATUS"},
	{7, "GAMEOBJECT_EVENT_ON_DESTROYED"},
	{8, "GAMEOBJECT_EVENT_ON_DAMAGED"},
	{9, "GAMEOBJECT_EVENT_ON_LOOT_STATE_CHANGE"},
	{10, "GAMEOBJECT_EVENT_ON_GO_STATE_CHANGED"},
	{12, "GAMEOBJECT_EVENT_ON_ADD"},
	{13, "GAMEOBJECT_EVENT_ON_REMOVE"},
	{14, "GAMEOBJECT_EVENT_ON_USE"},
}

var itemKinds = []KindInfo{
	{1, "ITEM_EVENT_ON_DUMMY_EFFECT"},
	{2, "ITEM_EVENT_ON_USE"},
	{3, "ITEM_EVENT_ON_QUEST_ACCEPT"},
	{4, "ITEM_EVENT_ON_EXPIRE"},
	{5, "ITEM_EVENT_ON_REMOVE"},
}

// instanceKinds is shared by the map and instance families.
var instanceKinds = []KindInfo{
	{1, "INSTANCE_EVENT_ON_INITIALIZE"},
	{2, "INSTANCE_EVENT_ON_LOAD"},
	{3, "INSTANCE_EVENT_ON_UPDATE"},
	{4, "INSTANCE_EVENT_ON_PLAYER_ENTER"},
	{5, "INSTANCE_EVENT_ON_CREATURE_CREATE"},
	{6, "INSTANCE_EVENT_ON_GAMEOBJECT_CREATE"},
	{7, "INSTANCE_EVENT_ON_CHECK_ENCOUNTER_IN_PROGRESS"},
}

var ticketKinds = []KindInfo{
	{1, "TICKET_EVENT_ON_CREATE"},
	{2, "TICKET_EVENT_ON_UPDATE"},
	{3, "TICKET_EVENT_ON_CLOSE"},
	{4, "TICKET_EVENT_STATUS_UPDATE"},
	{5, "TICKET_EVENT_ON_RESOLVE"},
}

var spellKinds = []KindInfo{
	{1, "SPELL_EVENT_ON_PREPARE"},
	{2, "SPELL_EVENT_ON_CAST"},
	{3, "SPELL_EVENT_ON_CAST_CANCEL"},
}
