package orderapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/utils"
)

// orderDocument is the order service's representation of an order. The
// service spells the start date in lower case; the camel-case form is
// accepted too.
type orderDocument struct {
	ID        string         `json:"_id"`
	AltID     string         `json:"id"`
	Items     []itemDocument `json:"items"`
	StartDate string         `json:"startdate"`
	AltStart  string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Status    string         `json:"status"`
}

type itemDocument struct {
	Name         string `json:"name"`
	MealType     string `json:"mealType"`
	DeliveryTime string `json:"deliveryTime"`
}

// envelope covers responses that wrap the order in a data or order field.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Order   json.RawMessage `json:"order"`
}

func decodeOrder(body []byte, orderID string, loc *time.Location) (models.Order, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", ErrUnrecognizedOrder, err)
	}
	if env.Success != nil && !*env.Success {
		return models.Order{}, fmt.Errorf("%w: %s", ErrNotFound, env.Message)
	}

	raw := body
	switch {
	case isObject(env.Order):
		raw = env.Order
	case isObject(env.Data):
		raw = env.Data
	}

	var doc orderDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", ErrUnrecognizedOrder, err)
	}
	return doc.toOrder(orderID, loc)
}

func (d orderDocument) toOrder(orderID string, loc *time.Location) (models.Order, error) {
	startRaw := d.StartDate
	if startRaw == "" {
		startRaw = d.AltStart
	}
	if startRaw == "" || d.EndDate == "" {
		return models.Order{}, fmt.Errorf("%w: missing delivery window", ErrUnrecognizedOrder)
	}
	start, err := utils.ParseCalendarDate(startRaw, loc)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: start date: %v", ErrUnrecognizedOrder, err)
	}
	end, err := utils.ParseCalendarDate(d.EndDate, loc)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: end date: %v", ErrUnrecognizedOrder, err)
	}

	items := make([]models.OrderItem, 0, len(d.Items))
	var times []models.MealTime
	for _, it := range d.Items {
		items = append(items, models.OrderItem(it))
		if it.MealType == "" || strings.TrimSpace(it.DeliveryTime) == "" {
			continue
		}
		cat, ok := models.ParseMealCategory(it.MealType)
		if !ok {
			logger.Debug("Ignoring item with unknown meal type", "order", orderID, "meal_type", it.MealType)
			continue
		}
		times = append(times, models.MealTime{Category: cat, Time: strings.TrimSpace(it.DeliveryTime)})
	}

	schedule, err := models.NewSchedule(start, end, times, loc)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", ErrUnrecognizedOrder, err)
	}

	id := d.ID
	if id == "" {
		id = d.AltID
	}
	if id == "" {
		id = orderID
	}

	return models.Order{
		ID:       id,
		Items:    items,
		Schedule: schedule,
		Status:   models.ParseRemoteStatus(d.Status),
	}, nil
}

type cancelRequest struct {
	Status string `json:"status"`
}

func newCancelRequest() cancelRequest {
	return cancelRequest{Status: constants.RemoteStatusCancelled}
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}
