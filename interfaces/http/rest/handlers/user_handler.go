package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"savinggrace-backend/application/ports"
	"savinggrace-backend/domain/entities"
	dynamostore "savinggrace-backend/infrastructure/persistence/dynamodb"
	"savinggrace-backend/pkg/auth"
	"savinggrace-backend/pkg/common"
	apperrors "savinggrace-backend/pkg/errors"
	"savinggrace-backend/pkg/utils"
)

// UserHandler serves staff account management. Accounts live in the
// identity directory; the profile record mirrors them in the table so
// listing and role lookups stay local.
type UserHandler struct {
	store      *dynamostore.Store
	planner    *dynamostore.Planner
	directory  ports.Directory
	logger     *zap.Logger
	errHandler *apperrors.ErrorHandler
}

// NewUserHandler creates a user handler.
func NewUserHandler(store *dynamostore.Store, planner *dynamostore.Planner, directory ports.Directory, logger *zap.Logger, errHandler *apperrors.ErrorHandler) *UserHandler {
	return &UserHandler{
		store:      store,
		planner:    planner,
		directory:  directory,
		logger:     logger,
		errHandler: errHandler,
	}
}

// CreateUserRequest is the POST /users payload.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Role  string `json:"role"`
}

// CreateUser handles POST /users: provisions the directory account and
// writes the profile record.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	role := auth.RoleReadOnly
	if req.Role != "" {
		role = auth.Role(req.Role)
		if !auth.ValidRole(role) {
			h.errHandler.Handle(w, r, invalidRoleError(req.Role))
			return
		}
	}

	account, err := h.directory.CreateAccount(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), strings.TrimSpace(req.Name))
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	user := entities.User{
		UserID: account.UserID,
		Email:  account.Email,
		Name:   strings.TrimSpace(req.Name),
		Role:   string(role),
		Active: true,
	}
	user.SetKeys()

	record, err := marshalRecord(user)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	stored, err := h.store.Put(r.Context(), record)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := unmarshalOne(stored, &user); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("User created",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
	)

	common.RespondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.fetchUser(r, userID)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /users, ordered by email.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params, cursor, err := listRequest(r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	spec := dynamostore.ListSpec{
		Relation:  entities.CollectionUsers,
		Page:      params.Page,
		PageSize:  params.PageSize,
		Cursor:    cursor,
		Ascending: true,
	}
	if role := r.URL.Query().Get("role"); role != "" {
		spec.Residual = append(spec.Residual, expressionEquals("role", role))
	}

	result, err := h.planner.List(r.Context(), spec)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	users, err := unmarshalAll[entities.User](result.Items)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK,
		common.NewPaginatedResult(users, params, result.TotalCount, result.NextToken))
}

// UpdateUserRequest is the PUT /users/{id} payload.
type UpdateUserRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
}

// UpdateUser handles PUT /users/{id}. Email and role have dedicated
// paths; only the display name is editable here.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if req.Name == nil {
		h.errHandler.Handle(w, r, apperrors.NewValidationError("no fields to update"))
		return
	}

	pk, sk := entities.UserKey(userID)
	stored, err := h.store.Update(r.Context(), pk, sk, map[string]interface{}{
		"name": strings.TrimSpace(*req.Name),
	}, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewNotFoundError("User", userID)
		}
		h.errHandler.Handle(w, r, err)
		return
	}

	var user entities.User
	if err := unmarshalOne(stored, &user); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, user)
}

// UpdateRoleRequest is the PUT /users/{id}/role payload.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UpdateRole handles PUT /users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req UpdateRoleRequest
	if err := parseBody(r, &req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	if !auth.ValidRole(auth.Role(req.Role)) {
		h.errHandler.Handle(w, r, invalidRoleError(req.Role))
		return
	}

	pk, sk := entities.UserKey(userID)
	stored, err := h.store.Update(r.Context(), pk, sk, map[string]interface{}{
		"role": req.Role,
	}, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewNotFoundError("User", userID)
		}
		h.errHandler.Handle(w, r, err)
		return
	}

	var user entities.User
	if err := unmarshalOne(stored, &user); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("User role updated",
		zap.String("user_id", userID),
		zap.String("role", req.Role),
	)

	common.RespondJSON(w, http.StatusOK, user)
}

// DisableUser handles DELETE /users/{id}: disables the directory
// account and marks the profile inactive. Disabling an already
// disabled user is a no-op.
func (h *UserHandler) DisableUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if _, err := h.fetchUser(r, userID); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	if err := h.directory.DisableAccount(r.Context(), userID); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	pk, sk := entities.UserKey(userID)
	if _, err := h.store.Update(r.Context(), pk, sk, map[string]interface{}{
		"active": false,
	}, nil); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("User disabled", zap.String("user_id", userID))

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"active":  false,
	})
}

func (h *UserHandler) fetchUser(r *http.Request, userID string) (*entities.User, error) {
	pk, sk := entities.UserKey(userID)
	item, err := h.store.Get(r.Context(), pk, sk)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("User", userID)
		}
		return nil, err
	}

	var user entities.User
	if err := unmarshalOne(item, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func invalidRoleError(string) error {
	all := auth.AllRoles()
	roles := make([]string, len(all))
	for i, r := range all {
		roles[i] = string(r)
	}
	return apperrors.NewFieldValidationError("role",
		"role must be one of: "+strings.Join(roles, ", "))
}
