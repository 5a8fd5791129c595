package httpapi

import (
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"github.com/gin-gonic/gin"
)

func (handler *Handler) handleAvailability(ctx *gin.Context) {
	var payload windowPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with kind and date"))
		return
	}
	parsed, err := parseTarget(ctx.Param("branch"), payload)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	start, err := payload.start()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	plan, err := payload.plan()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.service.CheckAvailability(ctx.Request.Context(), booking.AvailabilityRequest{
		Branch:   parsed.branch,
		Kind:     parsed.kind,
		Resource: parsed.resource,
		Member:   parsed.member,
		Date:     parsed.date,
		Start:    start,
		Duration: plan.TotalSpan(),
		Plan:     plan,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toAvailability(result))
}

func (handler *Handler) handleOpenStarts(ctx *gin.Context) {
	var payload windowPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with kind and date"))
		return
	}
	parsed, err := parseTarget(ctx.Param("branch"), payload)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	plan, err := payload.plan()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.service.FindOpenStarts(ctx.Request.Context(), booking.SearchRequest{
		Branch:   parsed.branch,
		Kind:     parsed.kind,
		Resource: parsed.resource,
		Member:   parsed.member,
		Date:     parsed.date,
		Plan:     plan,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toOpenStarts(result))
}

func (handler *Handler) handleLedger(ctx *gin.Context) {
	var payload ledgerPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with member, kind and unit"))
		return
	}
	request, err := ledgerRequestFrom(ctx.Param("branch"), payload)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	validation, err := handler.service.ValidateLedger(ctx.Request.Context(), request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toLedger(validation))
}

func ledgerRequestFrom(branchRaw string, payload ledgerPayload) (booking.LedgerRequest, error) {
	branch, err := booking.NewBranchID(branchRaw)
	if err != nil {
		return booking.LedgerRequest{}, err
	}
	member, err := booking.NewMemberID(payload.Member)
	if err != nil {
		return booking.LedgerRequest{}, err
	}
	kind, err := booking.ParseResourceKind(payload.Kind)
	if err != nil {
		return booking.LedgerRequest{}, err
	}
	unit, err := parseLedgerUnit(payload.Unit)
	if err != nil {
		return booking.LedgerRequest{}, err
	}
	request := booking.LedgerRequest{
		Branch:   branch,
		Member:   member,
		Scope:    booking.LedgerScope{Kind: kind, Unit: unit},
		Required: payload.Required,
	}
	if strings.TrimSpace(payload.Resource) != "" {
		if request.Scope.Resource, err = booking.NewResourceID(payload.Resource); err != nil {
			return booking.LedgerRequest{}, err
		}
	}
	if strings.TrimSpace(payload.AsOf) != "" {
		if request.AsOf, err = booking.NewDate(payload.AsOf); err != nil {
			return booking.LedgerRequest{}, err
		}
	}
	return request, nil
}

func (handler *Handler) handlePricing(ctx *gin.Context) {
	var payload windowPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with kind and date"))
		return
	}
	parsed, err := parseTarget(ctx.Param("branch"), payload)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	start, err := payload.start()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	plan, err := payload.plan()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	quote, err := handler.service.CalculatePrice(ctx.Request.Context(), booking.PriceRequest{
		Branch:   parsed.branch,
		Kind:     parsed.kind,
		Resource: parsed.resource,
		Date:     parsed.date,
		Start:    start,
		Duration: plan.TotalSpan(),
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toPrice(quote))
}

func (handler *Handler) handleCommit(ctx *gin.Context) {
	var payload commitPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body with kind, date and payment_method"))
		return
	}
	request, err := commitRequestFrom(ctx.Param("branch"), payload)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.service.CommitReservation(ctx.Request.Context(), request)
	if err != nil {
		if booking.KindOf(err) == booking.KindPartialCommit {
			ctx.JSON(http.StatusAccepted, gin.H{
				"reservation": toCommit(result),
				"error":       gin.H{"code": string(booking.KindPartialCommit), "message": err.Error()},
			})
			return
		}
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"reservation": toCommit(result)})
}

func commitRequestFrom(branchRaw string, payload commitPayload) (booking.CommitRequest, error) {
	parsed, err := parseTarget(branchRaw, payload.windowPayload)
	if err != nil {
		return booking.CommitRequest{}, err
	}
	start, err := payload.start()
	if err != nil {
		return booking.CommitRequest{}, err
	}
	plan, err := payload.plan()
	if err != nil {
		return booking.CommitRequest{}, err
	}
	method, err := booking.ParsePaymentMethod(payload.PaymentMethod)
	if err != nil {
		return booking.CommitRequest{}, err
	}
	request := booking.CommitRequest{
		Branch:         parsed.branch,
		Kind:           parsed.kind,
		Resource:       parsed.resource,
		Member:         parsed.member,
		MemberName:     strings.TrimSpace(payload.MemberName),
		MemberPhone:    strings.TrimSpace(payload.MemberPhone),
		Date:           parsed.date,
		Start:          start,
		Plan:           plan,
		PaymentMethod:  method,
		TotalAmount:    payload.TotalAmount,
		DiscountAmount: payload.DiscountAmount,
	}
	if strings.TrimSpace(payload.Contract) != "" {
		if request.Contract, err = booking.NewContractID(payload.Contract); err != nil {
			return booking.CommitRequest{}, err
		}
	}
	return request, nil
}
