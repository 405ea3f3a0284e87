package entity

import (
	"time"
)

// Field names shared by every tagged record in API payloads.
const (
	TypeField = "__typename"
	IDField   = "id"
)

// Entity type discriminators handled by the sync core. Other types pass
// through the cache untouched.
const (
	TypeNotification = "Notification"
	TypeBucket       = "Bucket"
	TypeUser         = "User"
)

// Key is the identity key "{Type}:{id}" addressing an entity in the
// flat normalized store.
type Key string

// NewKey builds the identity key for a type/id pair.
func NewKey(typeName, id string) Key {
	return Key(typeName + ":" + id)
}

// Entity is a JSON-shaped record carrying a type discriminator and an
// id. References to other entities are nested JSON objects on input and
// identity keys once normalized; an Entity never holds live pointers to
// other entities.
type Entity map[string]any

// TypeName returns the type discriminator, or "" when untagged.
func (e Entity) TypeName() string {
	name, _ := e[TypeField].(string)
	return name
}

// ID returns the entity id, or "" when untagged.
func (e Entity) ID() string {
	id, _ := e[IDField].(string)
	return id
}

// Key returns the identity key and whether the record is a tagged
// entity at all (both discriminator and id present and non-empty).
func (e Entity) Key() (Key, bool) {
	typeName := e.TypeName()
	id := e.ID()
	if typeName == "" || id == "" {
		return "", false
	}
	return NewKey(typeName, id), true
}

// Bucket is the typed view of a Bucket entity.
type Bucket struct {
	ID          string
	Name        string
	Color       string
	Icon        string
	Description string
}

// Notification is the typed view of a Notification entity. BucketID is
// resolved from the nested message.bucket reference and may be empty
// when the payload carries no bucket.
type Notification struct {
	ID        string
	CreatedAt time.Time
	ReadAt    *time.Time
	BucketID  string
	Title     string
	Body      string
}

// BucketFromEntity maps a tagged Bucket record into its typed view.
func BucketFromEntity(e Entity) (Bucket, bool) {
	if e.TypeName() != TypeBucket || e.ID() == "" {
		return Bucket{}, false
	}
	return Bucket{
		ID:          e.ID(),
		Name:        stringField(e, "name"),
		Color:       stringField(e, "color"),
		Icon:        stringField(e, "icon"),
		Description: stringField(e, "description"),
	}, true
}

// NotificationFromEntity maps a tagged Notification record into its
// typed view, resolving the nested message.bucket reference.
func NotificationFromEntity(e Entity) (Notification, bool) {
	if e.TypeName() != TypeNotification || e.ID() == "" {
		return Notification{}, false
	}

	n := Notification{ID: e.ID()}
	if created, err := time.Parse(time.RFC3339, stringField(e, "createdAt")); err == nil {
		n.CreatedAt = created
	}
	if read, err := time.Parse(time.RFC3339, stringField(e, "readAt")); err == nil {
		readAt := read
		n.ReadAt = &readAt
	}

	if message, ok := e["message"].(map[string]any); ok {
		n.Title = stringField(message, "title")
		n.Body = stringField(message, "body")
		if bucket, ok := message["bucket"].(map[string]any); ok {
			n.BucketID = stringField(bucket, "id")
		}
	}
	return n, true
}

func stringField(m map[string]any, key string) string {
	val, _ := m[key].(string)
	return val
}
