package schemas

import "encoding/json"

// Типизированные представления структурированного контента.
// Числа объявлены как json.Number: вендор иногда присылает строки вроде "50-200".

type CharacterStats struct {
	Health       json.Number `json:"health,omitempty"`
	Strength     json.Number `json:"strength,omitempty"`
	Intelligence json.Number `json:"intelligence,omitempty"`
	Agility      json.Number `json:"agility,omitempty"`
	Charisma     json.Number `json:"charisma,omitempty"`
}

type Character struct {
	Name        string         `json:"name"`
	Class       string         `json:"class"`
	Backstory   string         `json:"backstory"`
	Personality string         `json:"personality,omitempty"`
	Abilities   []string       `json:"abilities,omitempty"`
	Stats       CharacterStats `json:"stats"`
	Equipment   []string       `json:"equipment,omitempty"`
	Weaknesses  string         `json:"weaknesses,omitempty"`
	Motivation  string         `json:"motivation,omitempty"`
}

type QuestObjective struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

type QuestRewards struct {
	Experience json.Number `json:"experience,omitempty"`
	Gold       json.Number `json:"gold,omitempty"`
	Items      []string    `json:"items,omitempty"`
}

type QuestGiver struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Dialogue string `json:"dialogue,omitempty"`
}

type Quest struct {
	Title       string           `json:"title"`
	Type        string           `json:"type,omitempty"`
	Difficulty  string           `json:"difficulty,omitempty"`
	Description string           `json:"description"`
	Objectives  []QuestObjective `json:"objectives"`
	Rewards     QuestRewards     `json:"rewards"`
	NPC         QuestGiver       `json:"npc"`
	Story       string           `json:"story,omitempty"`
	Tips        []string         `json:"tips,omitempty"`
}

type PlayerChoice struct {
	Text     string `json:"text"`
	Response string `json:"response"`
}

type DialogueOption struct {
	NPCLine       string         `json:"npcLine"`
	PlayerChoices []PlayerChoice `json:"playerChoices"`
}

type Dialogue struct {
	NPCName         string           `json:"npcName"`
	NPCRole         string           `json:"npcRole,omitempty"`
	Mood            string           `json:"mood,omitempty"`
	Location        string           `json:"location,omitempty"`
	DialogueOptions []DialogueOption `json:"dialogueOptions"`
	QuestHint       string           `json:"questHint,omitempty"`
	Personality     string           `json:"personality,omitempty"`
}

type PointOfInterest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type World struct {
	Name             string            `json:"name"`
	Type             string            `json:"type,omitempty"`
	Description      string            `json:"description"`
	Atmosphere       string            `json:"atmosphere,omitempty"`
	Inhabitants      []string          `json:"inhabitants,omitempty"`
	PointsOfInterest []PointOfInterest `json:"pointsOfInterest,omitempty"`
	Resources        []string          `json:"resources,omitempty"`
	Dangers          []string          `json:"dangers,omitempty"`
	Lore             string            `json:"lore,omitempty"`
	Climate          string            `json:"climate,omitempty"`
	Economy          string            `json:"economy,omitempty"`
}

type EnemyStats struct {
	Health  json.Number `json:"health,omitempty"`
	Attack  json.Number `json:"attack,omitempty"`
	Defense json.Number `json:"defense,omitempty"`
	Speed   json.Number `json:"speed,omitempty"`
}

type EnemyAbility struct {
	Name     string      `json:"name"`
	Damage   json.Number `json:"damage,omitempty"`
	Cooldown json.Number `json:"cooldown,omitempty"`
}

type EnemyLoot struct {
	Common []string `json:"common,omitempty"`
	Rare   []string `json:"rare,omitempty"`
	Gold   any      `json:"gold,omitempty"`
}

type Enemy struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Level       json.Number    `json:"level,omitempty"`
	Description string         `json:"description,omitempty"`
	Stats       EnemyStats     `json:"stats"`
	Abilities   []EnemyAbility `json:"abilities,omitempty"`
	Weaknesses  []string       `json:"weaknesses,omitempty"`
	Resistances []string       `json:"resistances,omitempty"`
	Loot        EnemyLoot      `json:"loot"`
	Behavior    string         `json:"behavior,omitempty"`
	Location    string         `json:"location,omitempty"`
}

type ItemStats struct {
	Damage  json.Number `json:"damage,omitempty"`
	Defense json.Number `json:"defense,omitempty"`
	Bonus   string      `json:"bonus,omitempty"`
}

type ItemRequirements struct {
	Level json.Number `json:"level,omitempty"`
	Class string      `json:"class,omitempty"`
}

type Item struct {
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Rarity       string           `json:"rarity"`
	Description  string           `json:"description,omitempty"`
	Stats        ItemStats        `json:"stats"`
	Effects      []string         `json:"effects,omitempty"`
	Requirements ItemRequirements `json:"requirements"`
	Value        json.Number      `json:"value,omitempty"`
	Weight       json.Number      `json:"weight,omitempty"`
	Durability   json.Number      `json:"durability,omitempty"`
	Lore         string           `json:"lore,omitempty"`
	ObtainedFrom string           `json:"obtainedFrom,omitempty"`
}

type StoryChoice struct {
	Option          string `json:"option"`
	Consequence     string `json:"consequence,omitempty"`
	EmotionalImpact string `json:"emotionalImpact,omitempty"`
}

type Story struct {
	Title         string        `json:"title"`
	Chapter       string        `json:"chapter,omitempty"`
	Setting       string        `json:"setting,omitempty"`
	Characters    []string      `json:"characters,omitempty"`
	Conflict      string        `json:"conflict,omitempty"`
	Scene         string        `json:"scene"`
	Choices       []StoryChoice `json:"choices"`
	Mood          string        `json:"mood,omitempty"`
	Foreshadowing string        `json:"foreshadowing,omitempty"`
}
