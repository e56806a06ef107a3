package service

import (
	"context"
	"errors"
	"time"

	"actually-colab-be/internal/entity"
	"actually-colab-be/internal/mapper"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/pkg/logger"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
)

// ICollabService is the entry point for socket traffic. The transport calls
// Connect once, HandleMessage for every frame in arrival order and HandleClose
// when the socket goes away.
type ICollabService interface {
	Connect(ctx context.Context, connectionId string, userId uuid.UUID) error
	HandleMessage(ctx context.Context, connectionId string, raw []byte)
	HandleClose(connectionId string)
}

type collabService struct {
	registry   ISessionRegistry
	identity   IIdentityService
	access     IAccessService
	cells      ICellService
	notebooks  INotebookService
	shares     IShareService
	fanout     IFanoutService
	reconciler IReconcilerService
	logger     logger.ILogger
}

func NewCollabService(
	registry ISessionRegistry,
	identity IIdentityService,
	access IAccessService,
	cells ICellService,
	notebooks INotebookService,
	shares IShareService,
	fanout IFanoutService,
	reconciler IReconcilerService,
	log logger.ILogger,
) ICollabService {
	return &collabService{
		registry:   registry,
		identity:   identity,
		access:     access,
		cells:      cells,
		notebooks:  notebooks,
		shares:     shares,
		fanout:     fanout,
		reconciler: reconciler,
		logger:     log,
	}
}

func (s *collabService) Connect(ctx context.Context, connectionId string, userId uuid.UUID) error {
	if err := s.registry.Connect(ctx, connectionId, userId, time.Now()); err != nil {
		return err
	}
	s.logger.Info("CollabService", "Connection registered", map[string]interface{}{
		"connection_id": connectionId,
		"user_id":       userId.String(),
	})
	return nil
}

func (s *collabService) HandleMessage(ctx context.Context, connectionId string, raw []byte) {
	req, err := protocol.Decode(raw)
	if err != nil {
		s.report(ctx, connectionId, "", apperror.BadRequest(err.Error()))
		return
	}

	user, err := s.identity.UserFromConnection(ctx, connectionId)
	if err != nil {
		s.report(ctx, connectionId, req.Action(), err)
		return
	}

	if err := s.dispatch(ctx, connectionId, user, req); err != nil {
		s.report(ctx, connectionId, req.Action(), err)
	}
}

// HandleClose queues the disconnect so the read loop can exit at once. If the
// queue refuses the message the reconciliation runs inline in the background.
func (s *collabService) HandleClose(connectionId string) {
	closedAt := time.Now()
	err := s.reconciler.Enqueue(connectionId, closedAt)
	if err == nil {
		return
	}
	s.logger.Warn("CollabService", "Disconnect queue unavailable, reconciling directly", map[string]interface{}{
		"connection_id": connectionId,
		"error":         err.Error(),
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.reconciler.Reconcile(ctx, connectionId, closedAt); err != nil {
			s.logger.Error("CollabService", "Reconcile failed", map[string]interface{}{
				"connection_id": connectionId,
				"error":         err.Error(),
			})
		}
	}()
}

func (s *collabService) dispatch(ctx context.Context, connectionId string, user *entity.User, req protocol.Request) error {
	switch r := req.(type) {
	case protocol.OpenNotebook:
		return s.openNotebook(ctx, connectionId, user, r)
	case protocol.CloseNotebook:
		return s.closeNotebook(ctx, connectionId, user, r)
	case protocol.CreateCell:
		return s.createCell(ctx, connectionId, user, r)
	case protocol.LockCell:
		return s.lockCell(ctx, connectionId, user, r)
	case protocol.UnlockCell:
		return s.unlockCell(ctx, connectionId, user, r)
	case protocol.EditCell:
		if r.CellData == nil {
			return s.deleteCell(ctx, connectionId, user, r)
		}
		return s.editCell(ctx, connectionId, user, r)
	case protocol.UpdateOutput:
		return s.updateOutput(ctx, connectionId, user, r)
	case protocol.ShareNotebook:
		if r.AccessLevel == nil {
			return s.revoke(ctx, user, r)
		}
		return s.share(ctx, user, r)
	case protocol.SendChatMessage:
		return s.sendChat(ctx, connectionId, user, r)
	default:
		return apperror.BadRequest("unsupported action")
	}
}

func (s *collabService) openNotebook(ctx context.Context, connectionId string, user *entity.User, r protocol.OpenNotebook) error {
	if _, err := s.access.AssertCanRead(ctx, user.Id, r.NbId); err != nil {
		return err
	}
	if err := s.registry.OpenNotebook(ctx, connectionId, r.NbId, time.Now()); err != nil {
		return err
	}

	contents, err := s.notebooks.Snapshot(ctx, r.NbId)
	if err != nil {
		return err
	}
	if err := s.fanout.EmitToOne(ctx, connectionId, protocol.NewEvent(protocol.ActionNotebookContents, user.Id, contents)); err != nil {
		s.logger.Warn("CollabService", "Could not deliver notebook contents", map[string]interface{}{
			"connection_id": connectionId,
			"error":         err.Error(),
		})
	}

	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionNotebookOpened, user.Id, mapper.ToUserPayload(user)))
}

func (s *collabService) closeNotebook(ctx context.Context, connectionId string, user *entity.User, r protocol.CloseNotebook) error {
	result, err := s.registry.CloseNotebook(ctx, connectionId, r.NbId, time.Now())
	if err != nil {
		return err
	}
	if result.Session == nil {
		return nil
	}

	closed := protocol.NewEvent(protocol.ActionNotebookClosed, user.Id, protocol.NotebookRef{NbId: r.NbId})
	_ = s.fanout.EmitToOne(ctx, connectionId, closed)

	s.announceUnlocked(ctx, r.NbId, user.Id, result.UnlockedCells)
	return s.broadcast(ctx, r.NbId, closed)
}

func (s *collabService) createCell(ctx context.Context, connectionId string, user *entity.User, r protocol.CreateCell) error {
	cell, err := s.cells.Create(ctx, connectionId, user.Id, r.NbId, r.Language, r.Position)
	if err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionCellCreated, user.Id, mapper.ToCellPayload(cell)))
}

func (s *collabService) lockCell(ctx context.Context, connectionId string, user *entity.User, r protocol.LockCell) error {
	cell, err := s.cells.Lock(ctx, connectionId, user.Id, r.NbId, r.CellId)
	if err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionCellLocked, user.Id, mapper.ToCellPayload(cell)))
}

func (s *collabService) unlockCell(ctx context.Context, connectionId string, user *entity.User, r protocol.UnlockCell) error {
	var final *entity.CellEdit
	if r.CellData != nil {
		edit := toCellEdit(r.CellData)
		final = &edit
	}

	cell, err := s.cells.Unlock(ctx, connectionId, user.Id, r.NbId, r.CellId, final)
	if err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionCellUnlocked, user.Id, mapper.ToCellPayload(cell)))
}

func (s *collabService) editCell(ctx context.Context, connectionId string, user *entity.User, r protocol.EditCell) error {
	cell, err := s.cells.Edit(ctx, connectionId, user.Id, r.NbId, r.CellId, toCellEdit(r.CellData))
	if err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionCellEdited, user.Id, mapper.ToCellPayload(cell)))
}

func (s *collabService) deleteCell(ctx context.Context, connectionId string, user *entity.User, r protocol.EditCell) error {
	if err := s.cells.Delete(ctx, connectionId, user.Id, r.NbId, r.CellId); err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionCellDeleted, user.Id, protocol.CellRef{NbId: r.NbId, CellId: r.CellId}))
}

func (s *collabService) updateOutput(ctx context.Context, connectionId string, user *entity.User, r protocol.UpdateOutput) error {
	output, err := s.cells.SaveOutput(ctx, connectionId, user.Id, r.NbId, r.CellId, r.Output)
	if err != nil {
		return err
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionOutputUpdated, user.Id, mapper.ToOutputPayload(output)))
}

func (s *collabService) share(ctx context.Context, user *entity.User, r protocol.ShareNotebook) error {
	members, err := s.shares.Grant(ctx, user, r.NbId, r.Emails, entity.AccessLevel(*r.AccessLevel))
	if err != nil {
		return err
	}
	payload := protocol.NotebookShared{NbId: r.NbId, Users: mapper.ToMemberPayloads(members)}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionNotebookShared, user.Id, payload))
}

// revoke tells the remaining collaborators and, separately, the revoked
// connections, which are no longer bound and so miss the broadcast.
func (s *collabService) revoke(ctx context.Context, user *entity.User, r protocol.ShareNotebook) error {
	result, err := s.shares.Revoke(ctx, user, r.NbId, r.Emails)
	if err != nil {
		return err
	}
	if len(result.UserIds) == 0 {
		return nil
	}

	unshared := protocol.NewEvent(protocol.ActionNotebookUnshared, user.Id, protocol.NotebookUnshared{NbId: r.NbId, Uids: result.UserIds})
	if len(result.ConnectionIds) > 0 {
		s.fanout.EmitToMany(ctx, result.ConnectionIds, unshared)
	}

	s.announceUnlocked(ctx, r.NbId, user.Id, result.UnlockedCells)
	return s.broadcast(ctx, r.NbId, unshared)
}

func (s *collabService) sendChat(ctx context.Context, connectionId string, user *entity.User, r protocol.SendChatMessage) error {
	if _, err := s.access.AssertCanRead(ctx, user.Id, r.NbId); err != nil {
		return err
	}
	if _, err := s.registry.RequireBound(ctx, connectionId, r.NbId); err != nil {
		return err
	}

	msg := protocol.ChatMessage{
		Uid:       user.Id,
		NbId:      r.NbId,
		Message:   r.Message,
		Timestamp: time.Now().UnixMilli(),
	}
	return s.broadcast(ctx, r.NbId, protocol.NewEvent(protocol.ActionChatMessageSent, user.Id, msg))
}

func (s *collabService) announceUnlocked(ctx context.Context, notebookId, triggeredBy uuid.UUID, cells []*entity.Cell) {
	for _, cell := range cells {
		evt := protocol.NewEvent(protocol.ActionCellUnlocked, triggeredBy, mapper.ToCellPayload(cell))
		if err := s.fanout.Broadcast(ctx, notebookId, evt); err != nil {
			s.logger.Warn("CollabService", "Failed to announce released cell", map[string]interface{}{
				"cell_id": cell.Id.String(),
				"error":   err.Error(),
			})
		}
	}
}

// broadcast runs after the state change committed, so a failure here is
// logged rather than reported to the requester.
func (s *collabService) broadcast(ctx context.Context, notebookId uuid.UUID, evt protocol.Event) error {
	if err := s.fanout.Broadcast(ctx, notebookId, evt); err != nil {
		s.logger.Error("CollabService", "Broadcast failed", map[string]interface{}{
			"notebook_id": notebookId.String(),
			"action":      evt.Action,
			"error":       err.Error(),
		})
	}
	return nil
}

// report sends a private error event. Only Internal failures are logged.
func (s *collabService) report(ctx context.Context, connectionId string, action protocol.Action, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		s.logger.Error("CollabService", "Request failed", map[string]interface{}{
			"connection_id": connectionId,
			"action":        action,
			"error":         err.Error(),
		})
	}

	evt := protocol.Event{
		Action: protocol.ActionError,
		Data: protocol.ErrorReport{
			Code:          string(kind),
			Message:       apperror.MessageOf(err),
			RequestAction: action,
		},
	}
	if sendErr := s.fanout.EmitToOne(ctx, connectionId, evt); sendErr != nil && !errors.Is(sendErr, ErrConnectionGone) {
		s.logger.Warn("CollabService", "Could not deliver error report", map[string]interface{}{
			"connection_id": connectionId,
			"error":         sendErr.Error(),
		})
	}
}

func toCellEdit(d *protocol.CellData) entity.CellEdit {
	return entity.CellEdit{
		Contents:  d.Contents,
		Language:  d.Language,
		CursorPos: d.CursorPos,
	}
}
