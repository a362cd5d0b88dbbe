package runner

import (
	"context"
	"fmt"

	"github.com/cloudkucooland/farremote/action"

	"github.com/imroc/req/v3"
)

// HTTPGet calls a.URL; anything outside 2xx is a failed outcome
func (r *Runner) HTTPGet(ctx context.Context, a action.HTTPGet) action.Outcome {
	resp, err := r.client.R().SetContext(ctx).Get(a.URL)
	return httpOutcome(action.KindHTTPGet, a.URL, resp, err)
}

// HTTPPost sends a.Body to a.URL as text/plain
func (r *Runner) HTTPPost(ctx context.Context, a action.HTTPPost) action.Outcome {
	resp, err := r.client.R().
		SetContext(ctx).
		SetContentType("text/plain").
		SetBodyString(a.Body).
		Post(a.URL)
	return httpOutcome(action.KindHTTPPost, a.URL, resp, err)
}

// TestURL issues a single GET and reports the status, used by the rule editor
func (r *Runner) TestURL(ctx context.Context, url string) (int, error) {
	o := r.HTTPGet(ctx, action.HTTPGet{URL: url})
	return o.Code, o.Err
}

func httpOutcome(kind action.Kind, url string, resp *req.Response, err error) action.Outcome {
	if err != nil {
		return action.Failed(0, &ActionError{Kind: kind, Target: url, Err: err})
	}
	code := resp.StatusCode
	if code < 200 || code > 299 {
		return action.Failed(code, &ActionError{Kind: kind, Target: url, Err: fmt.Errorf("status %s", resp.Status)})
	}
	return action.Outcome{OK: true, Code: code}
}
