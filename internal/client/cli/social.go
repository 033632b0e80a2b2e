package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/netx"
)

// httpClient is a test seam for the avatar upload.
var httpClient = http.DefaultClient

func (a *App) needSocial() error {
	if a.social == nil {
		return fmt.Errorf("%w: no remote store configured", common.ErrUnavailable)
	}
	return nil
}

func (a *App) suggest(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	s, err := a.social.CreateSuggestion(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Suggestion %s sent to the owner of %s\n", s.ID, s.RecipeTitle)
	return nil
}

func (a *App) suggestions(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	list, err := a.social.ListSuggestions(ctx, args[0])
	if err != nil {
		return err
	}
	for _, s := range list {
		fmt.Fprintf(a.out, "%s [%s] %s: %s\n", s.ID, s.Status, s.SuggestedBy.DisplayName, s.Message)
	}
	return nil
}

func (a *App) resolve(to models.SuggestionStatus) handler {
	return func(ctx context.Context, args []string) error {
		if err := a.needSocial(); err != nil {
			return err
		}
		s, err := a.social.ResolveSuggestion(ctx, args[0], to)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Suggestion %s is %s\n", s.ID, s.Status)
		return nil
	}
}

func (a *App) notifications(ctx context.Context, _ []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	list, err := a.social.ListNotifications(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notifications")
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s %s %s %s %s\n", mark, n.ID, n.Actor.DisplayName, notificationVerb(n.Type), n.RecipeEmoji, n.RecipeTitle)
	}
	return nil
}

func notificationVerb(t models.NotificationType) string {
	switch t {
	case models.NotificationFavorite:
		return "favorited"
	case models.NotificationSuggestion:
		return "suggested a change to"
	default:
		return string(t)
	}
}

func (a *App) markRead(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	if args[0] == "all" {
		n, err := a.social.MarkAllNotificationsRead(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Marked %d notifications read\n", n)
		return nil
	}
	return a.social.MarkNotificationRead(ctx, args[0])
}

func (a *App) follow(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	return a.social.Follow(ctx, args[0])
}

func (a *App) unfollow(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	return a.social.Unfollow(ctx, args[0])
}

func (a *App) following(ctx context.Context, _ []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	ids, err := a.social.ListFollowing(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		o, err := a.owner()
		if err != nil {
			return err
		}
		id = o.ID
	}
	p, err := a.social.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	printProfile(a.out, p)
	return nil
}

func (a *App) avatar(ctx context.Context, args []string) error {
	if err := a.needSocial(); err != nil {
		return err
	}
	o, err := a.owner()
	if err != nil {
		return err
	}

	var av models.Avatar
	switch args[0] {
	case "generated":
		av = models.GeneratedAvatar(o.ID)
	case "emoji":
		if len(args) < 2 {
			return fmt.Errorf("%w: avatar emoji <emoji> [color]", common.ErrValidation)
		}
		av = models.Avatar{Type: models.AvatarEmoji, Emoji: args[1], BgColor: models.ColorFor(o.ID)}
		if len(args) > 2 {
			av.BgColor = args[2]
		}
	case "upload":
		if len(args) < 2 {
			return fmt.Errorf("%w: avatar upload <file>", common.ErrValidation)
		}
		key, err := a.uploadAvatar(ctx, args[1])
		if err != nil {
			return err
		}
		av = models.Avatar{Type: models.AvatarUploaded, URL: key}
	default:
		return fmt.Errorf("%w: unknown avatar kind %q", common.ErrValidation, args[0])
	}

	if err := a.social.UpdateAvatar(ctx, av); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Avatar updated")
	return nil
}

// uploadAvatar PUTs the file to a presigned URL and returns the object key.
func (a *App) uploadAvatar(ctx context.Context, path string) (string, error) {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", common.ErrValidation, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key, url, err := a.social.AvatarUploadURL(ctx, ct)
	if err != nil {
		return "", err
	}

	if err := netx.UploadToPresignedURL(ctx, httpClient, url, ct, f, info.Size()); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return key, nil
}
