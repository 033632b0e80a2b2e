package grpc

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/rpc"
	"google.golang.org/grpc"
)

// recipeLabServer is the handler type of serviceDesc.
type recipeLabServer interface {
	Ping(context.Context, *rpc.PingRequest) (*rpc.PingResponse, error)
}

// unary adapts a handler method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: rpc.ServiceName,
	HandlerType: (*recipeLabServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(rpc.MethodPing, (*GRPCServer).Ping),

		unary(rpc.MethodSignInAnonymously, (*GRPCServer).SignInAnonymously),
		unary(rpc.MethodLinkEmail, (*GRPCServer).LinkEmail),
		unary(rpc.MethodSignInWithEmail, (*GRPCServer).SignInWithEmail),
		unary(rpc.MethodRefreshToken, (*GRPCServer).RefreshToken),
		unary(rpc.MethodSignOut, (*GRPCServer).SignOut),
		unary(rpc.MethodWhoAmI, (*GRPCServer).WhoAmI),

		unary(rpc.MethodPutRecipe, (*GRPCServer).PutRecipe),
		unary(rpc.MethodGetRecipe, (*GRPCServer).GetRecipe),
		unary(rpc.MethodDeleteRecipes, (*GRPCServer).DeleteRecipes),
		unary(rpc.MethodSetFavorite, (*GRPCServer).SetFavorite),

		unary(rpc.MethodCreateSuggestion, (*GRPCServer).CreateSuggestion),
		unary(rpc.MethodListSuggestions, (*GRPCServer).ListSuggestions),
		unary(rpc.MethodResolveSuggestion, (*GRPCServer).ResolveSuggestion),

		unary(rpc.MethodListNotifications, (*GRPCServer).ListNotifications),
		unary(rpc.MethodMarkNotificationRead, (*GRPCServer).MarkNotificationRead),
		unary(rpc.MethodMarkAllNotificationsRead, (*GRPCServer).MarkAllNotificationsRead),

		unary(rpc.MethodGetProfile, (*GRPCServer).GetProfile),
		unary(rpc.MethodEnsureProfile, (*GRPCServer).EnsureProfile),
		unary(rpc.MethodUpdateDisplayName, (*GRPCServer).UpdateDisplayName),
		unary(rpc.MethodUpdateAvatar, (*GRPCServer).UpdateAvatar),
		unary(rpc.MethodAvatarUploadURL, (*GRPCServer).AvatarUploadURL),

		unary(rpc.MethodFollow, (*GRPCServer).Follow),
		unary(rpc.MethodUnfollow, (*GRPCServer).Unfollow),
		unary(rpc.MethodIsFollowing, (*GRPCServer).IsFollowing),
		unary(rpc.MethodListFollowing, (*GRPCServer).ListFollowing),

		unary(rpc.MethodMoveOwnership, (*GRPCServer).MoveOwnership),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recipelab/v1/recipelab.json",
}
