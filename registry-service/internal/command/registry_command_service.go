package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/events"
	"github.com/eaglebank/account-registry/shared/models"
	"github.com/eaglebank/account-registry/shared/utils"
	log "github.com/sirupsen/logrus"
)

// MemberWriter is the store of record for membership changes.
type MemberWriter interface {
	Insert(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, account, removedBy string) error
}

// ReadModel is refreshed from the store after every successful mutation.
type ReadModel interface {
	SyncMember(ctx context.Context, account string)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, stream string, event events.Event) error
}

// ActivityProjection stores projected events for the activity feed.
type ActivityProjection interface {
	Append(ctx context.Context, activity *models.Activity) error
	IsEventProcessed(ctx context.Context, eventID string) bool
	MarkEventProcessed(ctx context.Context, eventID string)
}

// RegistryCommandService applies add/remove to the write store, keeps the read
// model in sync and emits one event per successful change.
type RegistryCommandService struct {
	store     MemberWriter
	readModel ReadModel
	publisher EventPublisher
	activity  ActivityProjection
}

func NewRegistryCommandService(
	store MemberWriter,
	readModel ReadModel,
	publisher EventPublisher,
	activity ActivityProjection,
) *RegistryCommandService {
	return &RegistryCommandService{
		store:     store,
		readModel: readModel,
		publisher: publisher,
		activity:  activity,
	}
}

// AddAccount inserts the account and returns the emitted AddAccount event.
func (s *RegistryCommandService) AddAccount(ctx context.Context, cmd cqrs.AddAccountCommand) (*events.Event, error) {
	account, err := utils.NormalizeAddress(cmd.Account)
	if err != nil {
		return nil, registry.ErrInvalidAccount
	}
	member := &models.Member{
		Account: account,
		AddedBy: cmd.Caller,
		AddedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, member); err != nil {
		return nil, err
	}
	s.readModel.SyncMember(ctx, account)
	event := s.emit(ctx, events.AddAccount, account, cmd.Caller)
	return &event, nil
}

// RemoveAccount deletes the account and returns the emitted RemoveAccount
// event. Any authenticated caller may remove any member.
func (s *RegistryCommandService) RemoveAccount(ctx context.Context, cmd cqrs.RemoveAccountCommand) (*events.Event, error) {
	account, err := utils.NormalizeAddress(cmd.Account)
	if err != nil {
		return nil, registry.ErrInvalidAccount
	}
	if err := s.store.Delete(ctx, account, cmd.Caller); err != nil {
		return nil, err
	}
	s.readModel.SyncMember(ctx, account)
	event := s.emit(ctx, events.RemoveAccount, account, cmd.Caller)
	return &event, nil
}

// emit publishes the event onto the registry stream. The mutation has already
// been committed, so a publish failure is logged rather than returned.
func (s *RegistryCommandService) emit(ctx context.Context, eventType, account, caller string) events.Event {
	event := events.NewEvent(eventType, events.AccountEvent{Account: account, Caller: caller})
	entry := log.WithFields(log.Fields{"event": event.ID, "type": eventType, "account": account, "caller": caller})
	if err := s.publisher.PublishEvent(ctx, events.RegistryEventsStream, event); err != nil {
		entry.WithError(err).Error("Failed to publish registry event")
		return event
	}
	entry.Info("Registry event emitted")
	return event
}

// HandleRegistryEvent projects registry stream events into the activity feed.
// Redelivered events are detected by ID and skipped.
func (s *RegistryCommandService) HandleRegistryEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.AddAccount && event.Type != events.RemoveAccount {
		log.WithField("type", event.Type).Debug("Ignoring unrelated event")
		return nil
	}
	if s.activity.IsEventProcessed(ctx, event.ID) {
		log.WithField("event", event.ID).Info("Event already projected, skipping duplicate")
		return nil
	}
	var data events.AccountEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}
	if data.Account == "" {
		return errors.New("registry event without account")
	}
	if err := s.activity.Append(ctx, &models.Activity{
		EventID:   event.ID,
		Type:      event.Type,
		Account:   data.Account,
		Caller:    data.Caller,
		Timestamp: event.Timestamp,
	}); err != nil {
		return fmt.Errorf("failed to project %s event: %w", event.Type, err)
	}
	s.activity.MarkEventProcessed(ctx, event.ID)
	return nil
}
