package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colorcompete/colorcompete-backend/internal/giftcard"
	prommetrics "github.com/colorcompete/colorcompete-backend/internal/metrics"
	"github.com/colorcompete/colorcompete-backend/internal/models"
)

// defaultPrizeAmounts by subscription tier, used when the automation
// config carries no gift card amount.
var defaultPrizeAmounts = map[string]float64{
	models.TierLite:  25,
	models.TierPro:   50,
	models.TierChamp: 100,
}

const defaultLoserTemplate = `{{^is_winner}}Hi {{first_name}},

This month's {{tier}} drawing has concluded and another member took home
the prize. Every submission next month is another entry, so keep coloring!

Good luck in the next drawing,
The ColorCompete Team{{/is_winner}}`

// RunMonthlyDrawing selects one uniform-random winner among the tier's
// eligible subscribers for the current period, orders their gift card,
// and notifies winner and non-winners. A period/tier pair completes at
// most once: a distributed lock serializes concurrent runs and a unique
// index on the drawing record backstops it.
func (e *Executor) RunMonthlyDrawing(ctx context.Context, automation *models.Automation) (int, error) {
	tier := automation.DrawingTier()
	if tier == "" {
		return 0, fmt.Errorf("automation %d is not a drawing trigger", automation.ID)
	}

	now := e.now()
	month := int(now.Month())
	year := now.Year()

	lockName := fmt.Sprintf("drawing:%s:%d-%02d", tier, year, month)
	acquired, err := e.lock.Acquire(ctx, lockName)
	if err != nil {
		// The unique index still prevents a double completion, so a lock
		// outage degrades rather than blocks the drawing.
		e.log.Warn().Err(err).Str("lock", lockName).Msg("Drawing lock unavailable, proceeding")
	} else if !acquired {
		e.log.Info().Str("lock", lockName).Msg("Drawing already running elsewhere, skipping")
		return 0, nil
	} else {
		defer func() {
			if err := e.lock.Release(ctx, lockName); err != nil {
				e.log.Warn().Err(err).Str("lock", lockName).Msg("Failed to release drawing lock")
			}
		}()
	}

	completed, err := e.drawingRepo.HasCompleted(month, year, tier)
	if err != nil {
		return 0, fmt.Errorf("failed to check drawing state: %w", err)
	}
	if completed {
		e.log.Info().
			Str("tier", tier).
			Int("month", month).
			Int("year", year).
			Msg("Drawing already completed for this period")
		return 0, nil
	}

	subscriptions, err := e.subscriptionRepo.GetEligibleForDrawing(tier, month, year)
	if err != nil {
		return 0, fmt.Errorf("failed to load eligible subscribers: %w", err)
	}

	participants := make([]models.DrawingParticipant, 0, len(subscriptions))
	users := make([]*models.User, 0, len(subscriptions))
	for i := range subscriptions {
		user := &subscriptions[i].User
		if user.Email == "" || !user.RewardOptIn {
			continue
		}
		participants = append(participants, models.DrawingParticipant{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
		})
		users = append(users, user)
	}

	if len(participants) == 0 {
		e.log.Info().
			Str("tier", tier).
			Int("month", month).
			Int("year", year).
			Msg("No eligible participants, drawing skipped")
		return 0, nil
	}

	winnerIdx := e.randIntN(len(participants))
	winner := participants[winnerIdx]
	winnerUser := users[winnerIdx]

	amount := automation.Reward.GiftCardAmount
	if amount <= 0 {
		amount = defaultPrizeAmounts[tier]
	}

	drawing, err := e.recordDrawing(automation, month, year, tier, amount, participants, winner)
	if err != nil {
		return 0, err
	}

	card, err := e.giftCards.Send(ctx, &giftcard.Request{
		RecipientEmail: winner.Email,
		RecipientName:  winner.Name,
		Amount:         amount,
		Message:        automation.Reward.GiftCardMessage,
		Reference:      fmt.Sprintf("drawing:%s:%d-%02d", tier, year, month),
	})
	if err != nil {
		// The record stays incomplete so the next run retries this
		// period with the same participant snapshot.
		prommetrics.RecordGiftCardOrdered(tier, "error")
		e.log.Error().
			Err(err).
			Uint("user_id", winner.UserID).
			Str("tier", tier).
			Msg("Failed to send drawing gift card")
		return 0, fmt.Errorf("failed to send gift card: %w", err)
	}
	prommetrics.RecordGiftCardOrdered(tier, "success")

	sentAt := e.now()
	drawing.GiftCardID = card.ID
	drawing.GiftCardCode = card.Code
	drawing.GiftCardRedeemURL = card.RedeemURL
	drawing.GiftCardSentAt = &sentAt
	drawing.IsCompleted = true
	if err := e.drawingRepo.Update(drawing); err != nil {
		return 0, fmt.Errorf("failed to complete drawing record: %w", err)
	}
	prommetrics.RecordDrawingCompleted(tier)

	e.log.Info().
		Str("tier", tier).
		Int("month", month).
		Int("year", year).
		Uint("winner_id", winner.UserID).
		Float64("amount", amount).
		Msg("Monthly drawing completed")

	sent := 0
	monthName := now.Month().String()
	winnerVars := map[string]interface{}{
		"first_name":     winner.Name,
		"tier":           tier,
		"month":          monthName,
		"prize_amount":   amount,
		"gift_card_code": card.Code,
		"redeem_url":     card.RedeemURL,
		"is_winner":      true,
		"winner_name":    winner.Name,
	}
	// The card itself is delivered by the provider; the congratulation
	// email still honors the winner's opt-out.
	if winnerUser.WantsEmail() {
		if e.send(ctx, automation, &automation.Template, winner.Email, winner.Name, winnerVars) {
			sent++
		}
	}

	loserTemplate := automation.LoserTemplate
	if loserTemplate.HTMLContent == "" && loserTemplate.TextContent == "" {
		loserTemplate = models.EmailTemplate{
			Subject:     fmt.Sprintf("%s %s drawing results", monthName, tier),
			TextContent: defaultLoserTemplate,
		}
	}

	for i, participant := range participants {
		if i == winnerIdx {
			continue
		}
		if !users[i].WantsEmail() {
			continue
		}
		vars := map[string]interface{}{
			"first_name":   participant.Name,
			"tier":         tier,
			"month":        monthName,
			"prize_amount": amount,
			"is_winner":    false,
			"winner_name":  winner.Name,
		}
		if e.send(ctx, automation, &loserTemplate, participant.Email, participant.Name, vars) {
			sent++
		}
		if e.sendDelay > 0 && i < len(participants)-1 {
			time.Sleep(e.sendDelay)
		}
	}

	return sent, nil
}

// recordDrawing creates the period's drawing record with the winner and
// participant snapshot, or reuses an incomplete record left by a failed
// gift card order.
func (e *Executor) recordDrawing(
	automation *models.Automation,
	month, year int,
	tier string,
	amount float64,
	participants []models.DrawingParticipant,
	winner models.DrawingParticipant,
) (*models.MonthlyDrawing, error) {
	existing, err := e.drawingRepo.GetByPeriod(month, year, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to load drawing record: %w", err)
	}

	snapshot, err := json.Marshal(participants)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participants: %w", err)
	}

	if existing != nil {
		existing.PrizeAmount = amount
		existing.DrawingDate = e.now()
		existing.Participants = snapshot
		existing.WinnerUserID = &winner.UserID
		existing.WinnerEmail = winner.Email
		existing.WinnerName = winner.Name
		if err := e.drawingRepo.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to update drawing record: %w", err)
		}
		return existing, nil
	}

	drawing := &models.MonthlyDrawing{
		AutomationID: automation.ID,
		Month:        month,
		Year:         year,
		Tier:         tier,
		PrizeAmount:  amount,
		DrawingDate:  e.now(),
		Participants: snapshot,
		WinnerUserID: &winner.UserID,
		WinnerEmail:  winner.Email,
		WinnerName:   winner.Name,
	}
	if err := e.drawingRepo.Create(drawing); err != nil {
		return nil, fmt.Errorf("failed to create drawing record: %w", err)
	}
	return drawing, nil
}
