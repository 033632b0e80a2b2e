package client

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// candidates lists the sentinels a status code may carry. The first one whose
// text appears in the status message wins; otherwise the first is used.
var candidates = map[codes.Code][]error{
	codes.NotFound:           {common.ErrNotFound},
	codes.InvalidArgument:    {common.ErrValidation, common.ErrSelfAction},
	codes.AlreadyExists:      {common.ErrCredentialInUse},
	codes.FailedPrecondition: {common.ErrInvalidTransition, common.ErrSelfAction},
	codes.Unauthenticated:    {common.ErrUnauthorized, common.ErrRefreshTokenExpired, common.ErrTokenExpired, common.ErrInvalidToken},
	codes.PermissionDenied:   {common.ErrForbidden},
	codes.Unavailable:        {common.ErrUnavailable},
	codes.DeadlineExceeded:   {common.ErrUnavailable},
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	list, ok := candidates[st.Code()]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrInternal, st.Message())
	}
	for _, sentinel := range list {
		if st.Message() == sentinel.Error() {
			return sentinel
		}
		if strings.Contains(st.Message(), sentinel.Error()) {
			return fmt.Errorf("%w: %s", sentinel, st.Message())
		}
	}
	return fmt.Errorf("%w: %s", list[0], st.Message())
}
