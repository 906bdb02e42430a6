package stub

import (
	"net/http"
	"strings"

	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/crypto"
	"github.com/and161185/rideshare/internal/limiter"
	"github.com/and161185/rideshare/internal/model"
)

const minPasswordLen = 8

// userView renders the account with its derived counters. mu must be held.
func (s *Server) userView(id int64) *model.User {
	a, ok := s.users[id]
	if !ok {
		return nil
	}
	u := a.User
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)

	var sum int
	u.ReviewsCount = 0
	for _, rv := range s.reviews {
		if rv.revieweeID == id {
			sum += rv.rating
			u.ReviewsCount++
		}
	}
	u.Rating = 0
	if u.ReviewsCount > 0 {
		u.Rating = float64(sum) / float64(u.ReviewsCount)
	}

	u.RidesGiven, u.RidesTaken, u.TotalEarnings = 0, 0, 0
	for _, r := range s.rides {
		if r.driverID == id && r.Status == model.RideCompleted {
			u.RidesGiven++
		}
	}
	for _, b := range s.bookings {
		if b.passengerID != id || b.status != model.BookingAccepted {
			continue
		}
		if r := s.rides[b.rideID]; r != nil && r.Status == model.RideCompleted {
			u.RidesTaken++
		}
	}
	for _, b := range s.bookings {
		r := s.rides[b.rideID]
		if r != nil && r.driverID == id && r.Status == model.RideCompleted && b.status == model.BookingAccepted {
			u.TotalEarnings += r.Price * float64(b.seats)
		}
	}
	return &u
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in model.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string][]string{}
	add := func(k, msg string) { fields[k] = append(fields[k], msg) }
	if email == "" {
		add("email", "This field is required.")
	} else if !strings.Contains(email, "@") {
		add("email", "Enter a valid email address.")
	}
	if strings.TrimSpace(in.Username) == "" {
		add("username", "This field is required.")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		add("first_name", "This field is required.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		add("last_name", "This field is required.")
	}
	if len(in.Password) < minPasswordLen {
		add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if in.Password != in.PasswordConfirm {
		add("password", "Password fields didn't match.")
	}

	s.mu.Lock()
	if _, taken := s.byEmail[email]; taken && email != "" {
		add("email", "user with this email already exists.")
	}
	for _, a := range s.users {
		if in.Username != "" && strings.EqualFold(a.Username, in.Username) {
			add("username", "A user with that username already exists.")
			break
		}
	}
	s.mu.Unlock()
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	salt, hash, err := crypto.NewPasswordHash(in.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}

	s.mu.Lock()
	if _, taken := s.byEmail[email]; taken {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})
		return
	}
	id := s.addAccount(model.User{
		Email:       email,
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Location:    in.Location,
	}, salt, hash)
	out := convert.FromUser(s.userView(id), false)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, convert.RegisterResponse{
		User:    out,
		Message: "User registered successfully. Please login.",
	})
}

// addAccount must be called with mu held.
func (s *Server) addAccount(u model.User, salt, hash []byte) int64 {
	u.ID = s.nextID()
	now := s.now().UTC()
	u.DateJoined = &now
	s.users[u.ID] = &account{User: u, salt: salt, hash: hash}
	s.byEmail[u.Email] = u.ID
	return u.ID
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Please provide both email and password"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	ipHash := limiter.HashIP(clientIP(r))
	ctx := r.Context()

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	if !allowed {
		writeJSON(w, http.StatusTooManyRequests, detail("Too many failed login attempts. Try again later."))
		return
	}

	s.mu.Lock()
	var salt, hash []byte
	id, found := s.byEmail[email]
	if found {
		salt, hash = s.users[id].salt, s.users[id].hash
	}
	s.mu.Unlock()

	if !found || !crypto.VerifyPassword([]byte(in.Password), salt, hash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			writeJSON(w, http.StatusTooManyRequests, detail("Too many failed login attempts. Try again later."))
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid credentials"))
		return
	}
	_ = s.lim.Success(ctx, email, ipHash)

	access, refresh, err := s.issuePair(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	s.mu.Lock()
	u := convert.FromUser(s.userView(id), false)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, convert.LoginResponse{Access: access, Refresh: refresh, User: u})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Refresh != "" {
		c, err := s.parseToken(in.Refresh, tokenRefresh)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid token"))
			return
		}
		s.mu.Lock()
		s.revoked[c.ID] = struct{}{}
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, convert.MessageResponse{Message: "Logout successful"})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	invalid := map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"}
	c, err := s.parseToken(in.Refresh, tokenRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	id, err := c.userID()
	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	_, exists := s.users[id]
	s.mu.Unlock()
	if err != nil || revoked || !exists {
		writeJSON(w, http.StatusUnauthorized, invalid)
		return
	}
	access, err := s.issue(id, tokenAccess)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail("A server error occurred."))
		return
	}
	writeJSON(w, http.StatusOK, convert.RefreshResponse{Access: access})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	s.mu.Lock()
	u := convert.FromUser(s.userView(id), false)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())

	var (
		upd    model.ProfileUpdate
		avatar string
	)
	if isMultipart(r) {
		fields, file, err := readMultipart(r, "avatar")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, detail(err.Error()))
			return
		}
		upd = profileFromForm(fields)
		if file != "" {
			avatar = mediaURL(r, "avatars", file)
		}
	} else if !decode(w, r, &upd) {
		return
	}

	s.mu.Lock()
	a := s.users[id]
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FirstName, upd.FirstName)
	set(&a.LastName, upd.LastName)
	set(&a.Bio, upd.Bio)
	set(&a.PhoneNumber, upd.PhoneNumber)
	set(&a.Location, upd.Location)
	if avatar != "" {
		a.Avatar = avatar
	}
	u := convert.FromUser(s.userView(id), false)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func profileFromForm(f map[string]string) model.ProfileUpdate {
	var upd model.ProfileUpdate
	pick := func(k string) *string {
		if v, ok := f[k]; ok {
			return &v
		}
		return nil
	}
	upd.FirstName = pick("first_name")
	upd.LastName = pick("last_name")
	upd.Bio = pick("bio")
	upd.PhoneNumber = pick("phone_number")
	upd.Location = pick("location")
	return upd
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	u := s.userView(id)
	s.mu.Unlock()
	if u == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, convert.FromUser(u, true))
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	u := s.userView(id)
	s.mu.Unlock()
	if u == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, convert.User{
		ID:            u.ID,
		FullName:      u.FullName,
		Avatar:        strPtr(u.Avatar),
		Rating:        convert.Decimal(u.Rating),
		ReviewsCount:  u.ReviewsCount,
		RidesGiven:    u.RidesGiven,
		RidesTaken:    u.RidesTaken,
		TotalDistance: convert.Decimal(u.TotalDistance),
		DateJoined:    u.DateJoined,
	})
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
