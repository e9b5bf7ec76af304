package service

import (
	"github.com/devinvista/Trip-sub001/internal/api"
	"github.com/devinvista/Trip-sub001/internal/models"
)

func toAPIUser(u *models.User) *api.User {
	if u == nil {
		return nil
	}
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPITrip(t *models.Trip) *api.Trip {
	return &api.Trip{
		ID:              t.ID,
		CreatorID:       t.CreatorID,
		Title:           t.Title,
		Destination:     t.Destination,
		Description:     t.Description,
		StartDate:       t.StartDate,
		EndDate:         t.EndDate,
		Budget:          t.Budget,
		MaxParticipants: t.MaxParticipants,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toAPIParticipant(p *models.TripParticipant, users map[string]*models.User) api.Participant {
	return api.Participant{
		UserID:   p.UserID,
		User:     toAPIUser(users[p.UserID]),
		Status:   p.Status,
		JoinedAt: p.JoinedAt,
	}
}

func toAPIExpense(e *models.Expense, users map[string]*models.User) *api.Expense {
	return &api.Expense{
		ID:          e.ID,
		TripID:      e.TripID,
		PaidBy:      e.PaidBy,
		Payer:       toAPIUser(users[e.PaidBy]),
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Receipt:     e.Receipt,
		CreatedAt:   e.CreatedAt,
		SettledAt:   e.SettledAt,
	}
}

func toAPISplit(s *models.ExpenseSplit, users map[string]*models.User) api.Split {
	return api.Split{
		ID:        s.ID,
		ExpenseID: s.ExpenseID,
		UserID:    s.UserID,
		User:      toAPIUser(users[s.UserID]),
		Amount:    s.Amount,
		Paid:      s.Paid,
		SettledAt: s.SettledAt,
	}
}

func toAPISplits(splits []*models.ExpenseSplit, users map[string]*models.User) []api.Split {
	out := make([]api.Split, len(splits))
	for i, s := range splits {
		out[i] = toAPISplit(s, users)
	}
	return out
}
