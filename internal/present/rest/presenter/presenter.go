package presenter

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// lnurlError is the error shape the LNURL protocol prescribes; wallets show
// Reason to the payer.
type lnurlError struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	fmt.Println("Bad request:", err)
	return c.JSON(http.StatusBadRequest, lnurlError{Status: "ERROR", Reason: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	fmt.Println("Bad request:", msg)
	return c.JSON(http.StatusBadRequest, lnurlError{Status: "ERROR", Reason: msg})
}

func NotFound(c echo.Context, msg string) error {
	fmt.Println("Not found:", msg)
	return c.JSON(http.StatusNotFound, lnurlError{Status: "ERROR", Reason: msg})
}

func InternalError(c echo.Context, err error) error {
	fmt.Println("Internal error:", err)
	return c.JSON(http.StatusInternalServerError, lnurlError{Status: "ERROR", Reason: err.Error()})
}
