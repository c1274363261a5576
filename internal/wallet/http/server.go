package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/httpx"
	"github.com/radieske/race-bet-platform/internal/wallet/dto"
)

// Server exposes the balance read of the account ledger.
type Server struct {
	log *zap.Logger
	uow domain.UnitOfWork
}

func NewServer(log *zap.Logger, uow domain.UnitOfWork) *Server { return &Server{log: log, uow: uow} }

// GetWallet returns the balance of ?userId=. Accounts only exist after a first bet.
func (s *Server) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		httpx.WriteError(w, s.log, domain.Invalidf("userId required"))
		return
	}

	var bal decimal.Decimal
	err := s.uow.Do(r.Context(), func(ctx context.Context, st domain.Stores) error {
		var err error
		bal, err = st.Ledger.Balance(ctx, userID)
		return err
	})
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, Balance: bal.StringFixed(2)})
}
