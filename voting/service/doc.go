// Package service provides the business logic layer for voting sessions.
//
// VotingService sits between the transports (REST, MCP) and a store.Store.
// It generates access codes, refuses writes to closed sessions, checks that
// cards and users referenced by a vote belong to the session, and expires
// old closed sessions.
//
// Usage:
//
//	svc := service.NewVotingService(store.NewMemoryStore())
//
//	sess, err := svc.CreateSession(ctx, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	user, _ := svc.JoinSession(ctx, sess.AccessCode, "Ada", true)
//	card, _ := svc.AddCard(ctx, sess.AccessCode, "Ship it", "")
//	_, err = svc.CastVote(ctx, sess.AccessCode, card.ID, user.ID, true)
//
// Access codes are six characters from an alphabet without look-alike
// characters (no I, O, 0 or 1) and are matched case-insensitively.
// Generation retries on collision.
//
// The service does not talk to live connections; the api package broadcasts
// REST writes when configured to.
package service
