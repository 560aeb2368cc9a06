package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/customer"
)

type addAddressRequest struct {
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	HouseNo       string `json:"house_no"`
	StreetAddress string `json:"street_address"`
	Type          string `json:"type"`
}

type updateAddressRequest struct {
	City          *string `json:"city"`
	State         *string `json:"state"`
	Pincode       *string `json:"pincode"`
	HouseNo       *string `json:"house_no"`
	StreetAddress *string `json:"street_address"`
	Type          *string `json:"type"`
}

type addressResponse struct {
	ID            int64     `json:"address_id"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	HouseNo       string    `json:"house_no"`
	StreetAddress string    `json:"street_address"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_at"`
}

// AddAddress saves a delivery address for the authenticated customer. Every
// field is required.
func (h *Handler) AddAddress(c *gin.Context) {
	var req addAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, message("Invalid request body."))
		return
	}
	if req.City == "" || req.State == "" || req.Pincode == "" ||
		req.HouseNo == "" || req.StreetAddress == "" || req.Type == "" {
		c.JSON(http.StatusBadRequest, message("All fields are required."))
		return
	}

	id, err := h.addresses.Create(c.Request.Context(), &customer.Address{
		CustomerID:    customerID(c),
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		HouseNo:       req.HouseNo,
		StreetAddress: req.StreetAddress,
		Type:          req.Type,
	})
	if err != nil {
		zctx.From(c.Request.Context()).Error("Creating address", zap.Error(err))
		c.JSON(http.StatusInternalServerError, message("Internal server error."))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Address added successfully.",
		"addressId": id,
	})
}

// GetMyAddresses lists the customer's saved addresses.
func (h *Handler) GetMyAddresses(c *gin.Context) {
	addrs, err := h.addresses.ListByCustomer(c.Request.Context(), customerID(c))
	if err != nil {
		zctx.From(c.Request.Context()).Error("Listing addresses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, message("Internal server error."))
		return
	}

	out := make([]addressResponse, len(addrs))
	for i, a := range addrs {
		out[i] = addressResponse{
			ID:            a.ID,
			City:          a.City,
			State:         a.State,
			Pincode:       a.Pincode,
			HouseNo:       a.HouseNo,
			StreetAddress: a.StreetAddress,
			Type:          a.Type,
			CreatedAt:     a.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"addresses": out})
}

// UpdateAddress applies a partial update to one of the customer's addresses.
// Absent fields are left untouched.
func (h *Handler) UpdateAddress(c *gin.Context) {
	addressID, err := strconv.ParseInt(c.Param("addressId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, message("Invalid address id."))
		return
	}

	var req updateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, message("Invalid request body."))
		return
	}

	patch := customer.AddressPatch{
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		HouseNo:       req.HouseNo,
		StreetAddress: req.StreetAddress,
		Type:          req.Type,
	}
	err = h.addresses.Update(c.Request.Context(), customerID(c), addressID, patch)
	if err != nil {
		switch {
		case errors.Is(err, customer.ErrEmptyPatch):
			c.JSON(http.StatusBadRequest, message("No fields to update."))
		case errors.Is(err, customer.ErrAddressNotFound):
			c.JSON(http.StatusNotFound, message("Address not found."))
		default:
			zctx.From(c.Request.Context()).Error("Updating address", zap.Error(err))
			c.JSON(http.StatusInternalServerError, message("Internal server error."))
		}
		return
	}

	c.JSON(http.StatusOK, message("Address updated successfully."))
}

// DeleteAddress removes one of the customer's addresses.
func (h *Handler) DeleteAddress(c *gin.Context) {
	addressID, err := strconv.ParseInt(c.Param("addressId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, message("Invalid address id."))
		return
	}

	err = h.addresses.Delete(c.Request.Context(), customerID(c), addressID)
	if err != nil {
		if errors.Is(err, customer.ErrAddressNotFound) {
			c.JSON(http.StatusNotFound, message("Address not found."))
			return
		}
		zctx.From(c.Request.Context()).Error("Deleting address", zap.Error(err))
		c.JSON(http.StatusInternalServerError, message("Internal server error."))
		return
	}

	c.JSON(http.StatusOK, message("Address deleted successfully."))
}
