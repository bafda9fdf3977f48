package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	systemRowID = 1
)

var errSystemNotInitialized = errors.New("voting system row is missing; run EnsureOwner first")

type Repository struct {
	reader
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		reader: reader{
			db:     db,
			logger: logger,
		},
	}
}

// Migrate creates or upgrades the voting tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&systemModel{},
		&voterModel{},
		&proposalModel{},
		&ballotModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("voting_repo_migrate_failed", err)
	}
	return nil
}

// EnsureOwner seeds the singleton system row with the initial administrator.
// An existing row keeps its current owner.
func (r *Repository) EnsureOwner(ctx context.Context, owner common.Address) error {
	row := systemModel{
		ID:            systemRowID,
		OwnerAddress:  encodeAddress(owner),
		ProposalCount: 0,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("voting_repo_ensure_owner_failed", err, "owner", owner.Hex())
	}
	return nil
}

// WithinTx serializes writers on the system row lock, so every unit of work
// sees and produces a consistent state.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var system systemModel
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", systemRowID).
			First(&system).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errSystemNotInitialized
			}
			return r.logError("voting_repo_lock_system_failed", err)
		}
		return fn(&repositoryTx{reader: reader{db: db, logger: r.logger}})
	})
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

type reader struct {
	db     *gorm.DB
	logger *slog.Logger
}

func (r reader) GetOwner(ctx context.Context) (common.Address, error) {
	system, err := r.loadSystem(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(system.OwnerAddress), nil
}

func (r reader) IsRegisteredVoter(ctx context.Context, voter common.Address) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("address = ? AND registered", encodeAddress(voter)).
		Count(&count).Error; err != nil {
		return false, r.logError("voting_repo_is_registered_failed", err, "voter", voter.Hex())
	}
	return count > 0, nil
}

func (r reader) CountProposals(ctx context.Context) (uint64, error) {
	system, err := r.loadSystem(ctx)
	if err != nil {
		return 0, err
	}
	return system.ProposalCount, nil
}

func (r reader) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("voting_repo_get_proposal_failed", err, "proposal_id", proposalID)
	}
	return row.toEntity(), nil
}

func (r reader) HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("proposal_id = ? AND voter = ?", proposalID, encodeAddress(voter)).
		Count(&count).Error; err != nil {
		return false, r.logError("voting_repo_has_voted_failed", err,
			"proposal_id", proposalID,
			"voter", voter.Hex(),
		)
	}
	return count > 0, nil
}

func (r reader) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	tx := r.db.WithContext(ctx).Model(&proposalModel{})
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.DeadlineBefore != nil {
		tx = tx.Where("deadline < ?", filter.DeadlineBefore.UTC())
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []proposalModel
	if err := tx.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_proposals_failed", err, "status", string(filter.Status))
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r reader) loadSystem(ctx context.Context) (systemModel, error) {
	var system systemModel
	err := r.db.WithContext(ctx).
		Where("id = ?", systemRowID).
		First(&system).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return systemModel{}, errSystemNotInitialized
		}
		return systemModel{}, r.logError("voting_repo_load_system_failed", err)
	}
	return system, nil
}

func (r reader) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-system",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

type repositoryTx struct {
	reader
}

func (t *repositoryTx) SetOwner(ctx context.Context, owner common.Address) error {
	if err := t.db.WithContext(ctx).
		Model(&systemModel{}).
		Where("id = ?", systemRowID).
		Updates(map[string]any{
			"owner_address": encodeAddress(owner),
			"updated_at":    time.Now().UTC(),
		}).Error; err != nil {
		return t.logError("voting_repo_set_owner_failed", err, "owner", owner.Hex())
	}
	return nil
}

func (t *repositoryTx) AddVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModel{
		Address:      encodeAddress(voter.Address),
		Registered:   voter.Registered,
		RegisteredAt: voter.RegisteredAt.UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyRegistered
		}
		return t.logError("voting_repo_add_voter_failed", err, "voter", voter.Address.Hex())
	}
	return nil
}

func (t *repositoryTx) InsertProposal(ctx context.Context, proposal entities.Proposal) error {
	next, err := t.CountProposals(ctx)
	if err != nil {
		return err
	}
	if proposal.ProposalID != next {
		return domainerrors.ErrConflict
	}
	row := proposalModelFromEntity(proposal)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return t.logError("voting_repo_insert_proposal_failed", err, "proposal_id", proposal.ProposalID)
	}
	if err := t.db.WithContext(ctx).
		Model(&systemModel{}).
		Where("id = ?", systemRowID).
		Updates(map[string]any{
			"proposal_count": next + 1,
			"updated_at":     time.Now().UTC(),
		}).Error; err != nil {
		return t.logError("voting_repo_bump_proposal_count_failed", err, "proposal_id", proposal.ProposalID)
	}
	return nil
}

func (t *repositoryTx) UpdateProposal(ctx context.Context, proposal entities.Proposal) error {
	result := t.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("id = ?", proposal.ProposalID).
		Updates(map[string]any{
			"yes_votes": proposal.YesVotes,
			"no_votes":  proposal.NoVotes,
			"status":    string(proposal.Status),
			"ended_at":  normalizeOptionalTime(proposal.EndedAt),
		})
	if result.Error != nil {
		return t.logError("voting_repo_update_proposal_failed", result.Error, "proposal_id", proposal.ProposalID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (t *repositoryTx) InsertBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModel{
		ProposalID: ballot.ProposalID,
		Voter:      encodeAddress(ballot.Voter),
		Support:    ballot.Support,
		CastAt:     ballot.CastAt.UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateVote
		}
		return t.logError("voting_repo_insert_ballot_failed", err,
			"proposal_id", ballot.ProposalID,
			"voter", ballot.Voter.Hex(),
		)
	}
	return nil
}

func (t *repositoryTx) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode outbox envelope: %w", err)
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return t.logError("voting_repo_append_outbox_failed", err, "event_id", outboxID)
	}
	return nil
}

type systemModel struct {
	ID            int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	OwnerAddress  string    `gorm:"column:owner_address;size:42;not null"`
	ProposalCount uint64    `gorm:"column:proposal_count;not null;default:0"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (systemModel) TableName() string {
	return "voting_system"
}

type voterModel struct {
	Address      string    `gorm:"column:address;primaryKey;size:42"`
	Registered   bool      `gorm:"column:registered;not null"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (voterModel) TableName() string {
	return "voting_voters"
}

type proposalModel struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title       string     `gorm:"column:title"`
	Description string     `gorm:"column:description"`
	Deadline    time.Time  `gorm:"column:deadline;index"`
	YesVotes    uint64     `gorm:"column:yes_votes;not null;default:0"`
	NoVotes     uint64     `gorm:"column:no_votes;not null;default:0"`
	Status      string     `gorm:"column:status;index;size:16"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	EndedAt     *time.Time `gorm:"column:ended_at"`
}

func (proposalModel) TableName() string {
	return "voting_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		ID:          proposal.ProposalID,
		Title:       proposal.Title,
		Description: proposal.Description,
		Deadline:    proposal.Deadline.UTC(),
		YesVotes:    proposal.YesVotes,
		NoVotes:     proposal.NoVotes,
		Status:      string(proposal.Status),
		CreatedAt:   proposal.CreatedAt.UTC(),
		EndedAt:     normalizeOptionalTime(proposal.EndedAt),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:  m.ID,
		Title:       m.Title,
		Description: m.Description,
		Deadline:    m.Deadline.UTC(),
		YesVotes:    m.YesVotes,
		NoVotes:     m.NoVotes,
		Status:      entities.ProposalStatus(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
		EndedAt:     normalizeOptionalTime(m.EndedAt),
	}
}

type ballotModel struct {
	ProposalID uint64    `gorm:"column:proposal_id;primaryKey;autoIncrement:false"`
	Voter      string    `gorm:"column:voter;primaryKey;size:42"`
	Support    bool      `gorm:"column:support"`
	CastAt     time.Time `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "voting_ballots"
}

// outboxModel rows relay in seq order. Writers hold the system row lock, so
// seq order is commit order.
type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Seq          int64      `gorm:"column:seq;autoIncrement;uniqueIndex;<-:false"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}

// encodeAddress stores addresses lower-cased so lookups never depend on the
// checksum casing a client happened to send.
func encodeAddress(address common.Address) string {
	return strings.ToLower(address.Hex())
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.Tx = (*repositoryTx)(nil)
