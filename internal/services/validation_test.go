package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ledgerly/backend/internal/ledger"
	"github.com/ledgerly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := CreateBillRequest{
			Title:     "Rent",
			Amount:    d("1200"),
			Currency:  "USD",
			DueDate:   time.Now(),
			Frequency: models.Monthly,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("invalid struct - missing required fields", func(t *testing.T) {
		invalid := CreateBillRequest{
			Amount:    d("-5"),
			Frequency: "fortnightly",
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 5) // Title, Amount, Currency, DueDate, Frequency
	})

	t.Run("decimal amounts compare as numbers", func(t *testing.T) {
		invalid := TransferRequest{FromAccountID: "a", ToAccountID: "b", Amount: d("0")}

		err := vh.ValidateStruct(&invalid)
		require.Error(t, err)

		validationErrors := err.(validator.ValidationErrors)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Amount", validationErrors[0].Field())
		assert.Equal(t, "gt", validationErrors[0].Tag())
	})

	t.Run("recurring frequency", func(t *testing.T) {
		req := CreateSavingsPlanRequest{
			Name: "x", AmountPerPeriod: d("1"), Currency: "USD", Frequency: models.OneTime,
			TotalPeriods: 1, StartDate: time.Now(),
		}
		err := vh.ValidateStruct(&req)
		require.Error(t, err)
		assert.Equal(t, "recurring", err.(validator.ValidationErrors)[0].Tag())
	})

	t.Run("check wraps invalid argument", func(t *testing.T) {
		err := vh.check(&TransferRequest{})
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with wrapped validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.check(&CreateAccountRequest{Type: "brokerage"})
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Name")
		assert.Contains(t, response.Details, "Type")
		assert.Contains(t, response.Details, "Currency")
	})

	t.Run("non-validation error carries no details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, errors.New("plain"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Invalid request", response.Error)
		assert.Nil(t, response.Details)
	})
}
