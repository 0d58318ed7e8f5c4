package content

import "fmt"

// Namespace identifies an id space within the registry. Rooms, battles,
// items and the two asset tables are separate namespaces.
type Namespace string

const (
	NamespaceRoom   Namespace = "room"
	NamespaceBattle Namespace = "battle"
	NamespaceItem   Namespace = "item"
	NamespaceImage  Namespace = "image"
	NamespaceSound  Namespace = "sound"
)

// DuplicateIDError is returned when a unit's id collides within its namespace.
type DuplicateIDError struct {
	Namespace Namespace
	ID        string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q", e.Namespace, e.ID)
}

// NotFoundError is returned when a lookup does not resolve.
type NotFoundError struct {
	Namespace Namespace
	ID        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Namespace, e.ID)
}

// Registry collects all authored content units into lookup tables keyed by
// unique id. It must be fully populated before the validator or a session
// runs; after that it is read-only.
type Registry struct {
	rooms   map[string]*RoomSpec
	battles map[string]*BattleSpec
	items   map[string]*ItemSpec
	images  map[string]string // image key → file path
	sounds  map[string]string // sound key → file path
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]*RoomSpec),
		battles: make(map[string]*BattleSpec),
		items:   make(map[string]*ItemSpec),
		images:  make(map[string]string),
		sounds:  make(map[string]string),
	}
}

func (r *Registry) AddRoom(room *RoomSpec) error {
	if _, ok := r.rooms[room.ID]; ok {
		return &DuplicateIDError{Namespace: NamespaceRoom, ID: room.ID}
	}
	r.rooms[room.ID] = room
	return nil
}

func (r *Registry) AddBattle(battle *BattleSpec) error {
	if _, ok := r.battles[battle.ID]; ok {
		return &DuplicateIDError{Namespace: NamespaceBattle, ID: battle.ID}
	}
	r.battles[battle.ID] = battle
	return nil
}

func (r *Registry) AddItem(item *ItemSpec) error {
	if _, ok := r.items[item.ID]; ok {
		return &DuplicateIDError{Namespace: NamespaceItem, ID: item.ID}
	}
	r.items[item.ID] = item
	return nil
}

// AddImage registers an image asset key. The core never loads the file;
// the path is for the rendering layer.
func (r *Registry) AddImage(key, path string) error {
	if _, ok := r.images[key]; ok {
		return &DuplicateIDError{Namespace: NamespaceImage, ID: key}
	}
	r.images[key] = path
	return nil
}

func (r *Registry) AddSound(key, path string) error {
	if _, ok := r.sounds[key]; ok {
		return &DuplicateIDError{Namespace: NamespaceSound, ID: key}
	}
	r.sounds[key] = path
	return nil
}

func (r *Registry) Room(id string) (*RoomSpec, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, &NotFoundError{Namespace: NamespaceRoom, ID: id}
	}
	return room, nil
}

func (r *Registry) Battle(id string) (*BattleSpec, error) {
	battle, ok := r.battles[id]
	if !ok {
		return nil, &NotFoundError{Namespace: NamespaceBattle, ID: id}
	}
	return battle, nil
}

func (r *Registry) Item(id string) (*ItemSpec, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, &NotFoundError{Namespace: NamespaceItem, ID: id}
	}
	return item, nil
}

func (r *Registry) HasRoom(id string) bool   { _, ok := r.rooms[id]; return ok }
func (r *Registry) HasBattle(id string) bool { _, ok := r.battles[id]; return ok }
func (r *Registry) HasItem(id string) bool   { _, ok := r.items[id]; return ok }
func (r *Registry) HasImage(key string) bool { _, ok := r.images[key]; return ok }
func (r *Registry) HasSound(key string) bool { _, ok := r.sounds[key]; return ok }

// Rooms returns the room table. Callers must treat it as read-only.
func (r *Registry) Rooms() map[string]*RoomSpec { return r.rooms }

// Battles returns the battle table. Callers must treat it as read-only.
func (r *Registry) Battles() map[string]*BattleSpec { return r.battles }

// Items returns the item table. Callers must treat it as read-only.
func (r *Registry) Items() map[string]*ItemSpec { return r.items }

// ImagePath resolves an image key to its file path for the rendering layer.
func (r *Registry) ImagePath(key string) (string, error) {
	path, ok := r.images[key]
	if !ok {
		return "", &NotFoundError{Namespace: NamespaceImage, ID: key}
	}
	return path, nil
}

// SoundPath resolves a sound key to its file path for the audio layer.
func (r *Registry) SoundPath(key string) (string, error) {
	path, ok := r.sounds[key]
	if !ok {
		return "", &NotFoundError{Namespace: NamespaceSound, ID: key}
	}
	return path, nil
}
