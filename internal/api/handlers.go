package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"svidanie/internal/models"
	"svidanie/internal/referral"
	"svidanie/internal/schedule"
)

func (s *HTTPServer) decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func currencyParam(raw string) models.Currency {
	c := models.Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if c == "" {
		return models.CurrencyRUB
	}
	return c
}

func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": s.repo.GetActiveServices()})
}

type saveUserRequest struct {
	TelegramID   int64  `json:"telegram_id" validate:"required"`
	Username     string `json:"username" validate:"max=64"`
	DisplayName  string `json:"display_name" validate:"required,max=128"`
	Role         string `json:"role" validate:"omitempty,oneof=buyer seller agency"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=16"`
}

func (s *HTTPServer) handleSaveUser(w http.ResponseWriter, r *http.Request) {
	var req saveUserRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{
		TelegramID:  req.TelegramID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	}
	if err := s.users.SaveUser(r.Context(), user); err != nil {
		mapError(w, err)
		return
	}

	// Привязка к пригласившему происходит один раз, повтор игнорируется.
	if req.ReferralCode != "" {
		if err := s.referral.RegisterReferral(r.Context(), req.TelegramID, req.ReferralCode); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", req.TelegramID).Msg("referral registration rejected")
		}
	}

	saved, err := s.users.GetUser(r.Context(), req.TelegramID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	bookings, err := s.bookings.GetUserBookings(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type setScheduleRequest struct {
	Type        models.WorkScheduleType       `json:"type" validate:"required,oneof=24/7 custom inactive"`
	CustomHours map[string]models.DaySchedule `json:"custom_hours" validate:"omitempty,max=7"`
}

func (s *HTTPServer) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req setScheduleRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws := &models.WorkSchedule{Type: req.Type, CustomHours: req.CustomHours}
	if err := s.users.SetSchedule(r.Context(), id, ws); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":         schedule.IsActiveNow(user.Schedule, now),
		"next_available": schedule.NextAvailable(user.Schedule, now),
		"schedule_text":  schedule.Format(user.Schedule),
	})
}

type createBookingRequest struct {
	ServiceID int64  `json:"service_id" validate:"required"`
	SellerID  int64  `json:"seller_id" validate:"required"`
	BuyerID   int64  `json:"buyer_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,datetime=15:04"`
	Note      string `json:"note" validate:"max=500"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req.ServiceID, req.SellerID, req.BuyerID, req.Date, req.Time, req.Note)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// transitionHandler сводит однотипные переходы статуса к одному обработчику.
func (s *HTTPServer) transitionHandler(fn func(ctx context.Context, bookingID int64) (*models.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking id")
			return
		}
		booking, err := fn(r.Context(), id)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

type extendBookingRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (s *HTTPServer) handleExtendBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req extendBookingRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	booking, err := s.bookings.ExtendBooking(r.Context(), id, req.Amount)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req cancelBookingRequest
	if r.ContentLength > 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	booking, err := s.bookings.CancelBooking(r.Context(), id, req.Reason)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	currency := currencyParam(r.URL.Query().Get("currency"))
	balance, err := s.wallet.GetBalance(r.Context(), id, currency)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  id,
		"currency": currency,
		"balance":  balance,
	})
}

type depositRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,oneof=RUB USD EUR BTC ETH USDT"`
}

func (s *HTTPServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req depositRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.wallet.Deposit(r.Context(), id, req.Amount, currencyParam(req.Currency))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type withdrawRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,oneof=RUB USD EUR BTC ETH USDT"`
	Address  string  `json:"address" validate:"required,max=128"`
}

func (s *HTTPServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req withdrawRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.wallet.Withdraw(r.Context(), id, req.Amount, currencyParam(req.Currency), req.Address)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *HTTPServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	txs, err := s.wallet.GetTransactions(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *HTTPServer) handleReferralLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	link, err := s.referral.GetReferralLink(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

func (s *HTTPServer) handleReferralList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	referrals, err := s.referral.GetReferrals(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"referrals": referrals,
		"tree":      referral.BuildTree(referrals),
	})
}

type registerReferralRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

func (s *HTTPServer) handleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req registerReferralRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.referral.RegisterReferral(r.Context(), id, req.Code); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *HTTPServer) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.GetAllUsers(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type blacklistRequest struct {
	Blacklisted bool `json:"blacklisted"`
}

func (s *HTTPServer) handleAdminBlacklist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req blacklistRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.users.SetBlacklisted(r.Context(), id, req.Blacklisted); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	bookings, err := s.repo.GetBookingsByStatus(r.Context(), models.BookingStatus(status))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

type exportRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req exportRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	path, err := s.wallet.ExportTransactions(r.Context(), id, from, to.Add(24*time.Hour-time.Second))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}
