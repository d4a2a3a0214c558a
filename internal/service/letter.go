package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

const (
	MaxLetterTitleLength = 200
	// MaxEmojiLength is in runes: compound emoji (skin tones, ZWJ
	// sequences) span several codepoints but must still be accepted.
	MaxEmojiLength = 10
)

// Spanish user-facing messages for the reaction toggle outcomes.
const (
	msgReactionAdded   = "Reacción agregada"
	msgReactionUpdated = "Reacción actualizada"
	msgReactionRemoved = "Reacción eliminada"
)

// LetterInput carries the writable letter fields. Pointer fields on Update
// distinguish "leave unchanged" from "set to zero".
type LetterInput struct {
	Title       string
	Icon        string
	Content     string
	PublishedAt *time.Time
	LegacyID    *int64
}

// LetterService handles letters and their reactions. Mutations other than
// reacting are restricted to the letter's creator or a superadmin.
type LetterService struct {
	repo   repository.LetterRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewLetterService(repo repository.LetterRepository, users repository.UserRepository, logger *slog.Logger) *LetterService {
	return &LetterService{repo: repo, users: users, logger: logger}
}

func (s *LetterService) Get(ctx context.Context, ref string) (*model.Letter, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperror.ValidationFailed("id", "letter ID is required")
	}
	return s.repo.GetLetterByRef(ctx, ref)
}

func (s *LetterService) List(ctx context.Context, filter repository.LetterFilter) ([]model.Letter, int, error) {
	letters, total, err := s.repo.ListLetters(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list letters", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("listing letters: %w", err)
	}
	return letters, total, nil
}

// Create validates and saves a new letter authored by the caller.
func (s *LetterService) Create(ctx context.Context, caller auth.Identity, input LetterInput) (*model.Letter, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, apperror.ValidationFailed("title", "letter title is required")
	}
	if len(input.Title) > MaxLetterTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("letter title must be %d characters or less", MaxLetterTitleLength))
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperror.ValidationFailed("content", "letter content is required")
	}

	letter := &model.Letter{
		Title:       input.Title,
		Icon:        input.Icon,
		Content:     input.Content,
		PublishedAt: input.PublishedAt,
		LegacyID:    input.LegacyID,
		CreatedBy:   s.authorRef(ctx, caller),
	}

	if err := s.repo.CreateLetter(ctx, letter); err != nil {
		return nil, err
	}

	s.logger.Info("letter created",
		slog.String("id", letter.ID),
		slog.String("by", caller.ID),
	)
	return letter, nil
}

// Update applies a partial update. Only the creator or a superadmin may
// edit; empty input fields are left unchanged.
func (s *LetterService) Update(ctx context.Context, caller auth.Identity, ref string, input LetterInput) (*model.Letter, error) {
	letter, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := canModify(caller, letter); err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		if len(title) > MaxLetterTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("letter title must be %d characters or less", MaxLetterTitleLength))
		}
		letter.Title = title
	}
	if input.Icon != "" {
		letter.Icon = input.Icon
	}
	if strings.TrimSpace(input.Content) != "" {
		letter.Content = input.Content
	}
	if input.PublishedAt != nil {
		letter.PublishedAt = input.PublishedAt
	}
	if input.LegacyID != nil {
		letter.LegacyID = input.LegacyID
	}

	if err := s.repo.UpdateLetter(ctx, letter); err != nil {
		return nil, err
	}

	s.logger.Info("letter updated", slog.String("id", letter.ID), slog.String("by", caller.ID))
	return letter, nil
}

func (s *LetterService) Delete(ctx context.Context, caller auth.Identity, ref string) error {
	letter, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := canModify(caller, letter); err != nil {
		return err
	}

	if err := s.repo.DeleteLetter(ctx, letter.ID); err != nil {
		return err
	}

	s.logger.Info("letter deleted", slog.String("id", letter.ID), slog.String("by", caller.ID))
	return nil
}

// React toggles the caller's reaction on a letter and returns the message
// for the action taken plus the letter as persisted afterwards.
func (s *LetterService) React(ctx context.Context, caller auth.Identity, ref, emoji string) (string, *model.Letter, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", nil, apperror.ValidationFailed("emoji", "emoji is required")
	}
	if utf8.RuneCountInString(emoji) > MaxEmojiLength {
		return "", nil, apperror.ValidationFailed("emoji",
			fmt.Sprintf("emoji must be %d characters or less", MaxEmojiLength))
	}

	// Resolve the ref first so the toggle always runs against the primary
	// ID, even when the client addressed the letter by its legacy ID.
	letter, err := s.Get(ctx, ref)
	if err != nil {
		return "", nil, err
	}

	action, err := s.repo.React(ctx, letter.ID, caller.ID, emoji)
	if err != nil {
		return "", nil, err
	}

	letter, err = s.repo.GetLetterByRef(ctx, letter.ID)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("reaction toggled",
		slog.String("letter", letter.ID),
		slog.String("user", caller.ID),
		slog.String("action", string(action)),
	)

	switch action {
	case model.ReactionAdded:
		return msgReactionAdded, letter, nil
	case model.ReactionUpdated:
		return msgReactionUpdated, letter, nil
	default:
		return msgReactionRemoved, letter, nil
	}
}

// authorRef builds the creator projection for a new letter. The env-admin
// fallback identity has no user row; its bare ID is still recorded.
func (s *LetterService) authorRef(ctx context.Context, caller auth.Identity) model.UserRef {
	user, err := s.users.GetUserByID(ctx, caller.ID)
	if err != nil {
		return model.UserRef{ID: caller.ID, Role: caller.Role}
	}
	return user.Ref()
}

func canModify(caller auth.Identity, letter *model.Letter) error {
	if caller.Role == model.RoleSuperAdmin || caller.ID == letter.CreatedBy.ID {
		return nil
	}
	return apperror.Forbidden("only the letter's creator may modify it")
}
