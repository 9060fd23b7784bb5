package state

import (
	"cmp"
	"errors"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/cashout"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/opstore"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ErrNoHistory is returned by history queries when the node keeps no
// operation history.
var ErrNoHistory = errors.New("operation history is not enabled")

// =============================================================================

// AccountInfo is an account with the values derived from it at the head block.
type AccountInfo struct {
	database.Account
	VotingPowerNow    int64                        `json:"current_voting_power"`
	PendingInterest   int64                        `json:"pending_hbd_interest"`
	PendingSavings    int64                        `json:"pending_savings_interest"`
	Vesting           database.VestingState        `json:"vesting"`
	Delegations       []database.Delegation        `json:"delegations"`
	SavingsRequests   []database.SavingsWithdraw   `json:"savings_requests"`
	RecurrentTransfer []database.RecurrentTransfer `json:"recurrent_transfers"`
}

// PostInfo is a post with its pending cashout, if it has not been paid.
type PostInfo struct {
	database.Post
	Cashout *database.Cashout `json:"cashout,omitempty"`
	Votes   []database.Vote   `json:"votes"`
}

// SubsidyInfo is the state of the account creation subsidy pools.
type SubsidyInfo struct {
	Global    database.SubsidyPool                        `json:"global"`
	Producers map[database.AccountID]database.SubsidyPool `json:"producers"`
}

// =============================================================================

// QueryAccount returns a copy of the account from the database.
func (s *State) QueryAccount(accountID database.AccountID) (AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.db.Account(accountID)
	if err != nil {
		return AccountInfo{}, err
	}

	now := s.db.Now()
	regen := s.genesis.Rewards.VoteRegenerationSec

	return AccountInfo{
		Account:           account,
		VotingPowerNow:    cashout.VotingPower(account, now, regen),
		PendingInterest:   s.eng.interest.Pending(account, false, now),
		PendingSavings:    s.eng.interest.Pending(account, true, now),
		Vesting:           account.Vesting(),
		Delegations:       s.eng.vesting.Delegations(accountID),
		SavingsRequests:   s.eng.conversion.SavingsRequests(accountID),
		RecurrentTransfer: s.eng.recurrent.Transfers(accountID),
	}, nil
}

// QueryAccounts returns a copy of every account in the database.
func (s *State) QueryAccounts() map[database.AccountID]database.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.CopyAccounts()
}

// QueryGlobals returns the chain wide properties.
func (s *State) QueryGlobals() database.Globals {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Globals()
}

// QueryRewardFund returns the reward fund.
func (s *State) QueryRewardFund() database.RewardFund {
	return s.QueryGlobals().RewardFund
}

// QueryFeedHistory returns the aggregated price feed.
func (s *State) QueryFeedHistory() database.FeedHistory {
	return s.QueryGlobals().Feed
}

// QueryPost returns the post with its cashout and votes.
func (s *State) QueryPost(author database.AccountID, permlink string) (PostInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, err := s.db.PostByKey(author, permlink)
	if err != nil {
		return PostInfo{}, err
	}

	info := PostInfo{
		Post: post,
		Votes: s.db.Votes.Select(
			func(v database.Vote) bool { return v.PostID == post.ID },
			func(a, b database.Vote) int { return cmp.Compare(a.Sequence, b.Sequence) },
		),
	}

	if co, exists := s.db.Cashouts.Get(post.ID); exists {
		info.Cashout = &co
	}

	return info, nil
}

// QueryCashouts returns the pending cashouts due up to the time, earliest
// first. A zero time returns all of them.
func (s *State) QueryCashouts(until time.Time) []database.Cashout {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Cashouts.Select(
		func(c database.Cashout) bool { return until.IsZero() || !c.CashoutTime.After(until) },
		func(a, b database.Cashout) int {
			if c := a.CashoutTime.Compare(b.CashoutTime); c != 0 {
				return c
			}
			return cmp.Compare(a.PostID, b.PostID)
		},
	)
}

// QueryRecurrentTransfers returns the recurrent transfers of the account.
func (s *State) QueryRecurrentTransfers(from database.AccountID) []database.RecurrentTransfer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.eng.recurrent.Transfers(from)
}

// QuerySubsidy returns the subsidy pools decayed to the head block.
func (s *State) QuerySubsidy() SubsidyInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.db.Globals().HeadBlockNumber

	return SubsidyInfo{
		Global:    s.eng.subsidy.Global(),
		Producers: s.eng.subsidy.Producers(head),
	}
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryMempool returns a copy of the mempool.
func (s *State) QueryMempool() []storage.SignedTx {
	return s.mempool.Copy()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]storage.Block, error) {
	latest := s.LatestBlock().Header.Number

	if from == QueryLatest {
		from = latest
		to = latest
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []storage.Block
	for i := from; i <= to && i > 0; i++ {
		blockData, err := s.storage.GetBlock(i)
		if err != nil {
			return nil, err
		}

		block, err := storage.ToBlock(blockData)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryBlockOperations returns the operations of the block in canonical
// order, keeping the kinds the filter selects. With onlyVirtual set the real
// operations are left out.
func (s *State) QueryBlockOperations(num uint64, filter operation.Filter, onlyVirtual bool) ([]oplog.Record, error) {
	if s.opstore == nil {
		return nil, ErrNoHistory
	}

	if num == QueryLatest {
		num = s.LatestBlock().Header.Number
	}

	records, err := s.opstore.Block(num)
	if err != nil {
		return nil, err
	}

	out := make([]oplog.Record, 0, len(records))
	for _, r := range records {
		if onlyVirtual && !r.Virtual {
			continue
		}
		if !filter.Matches(r.Op.Kind()) {
			continue
		}
		out = append(out, r)
	}

	return out, nil
}

// QueryAccountHistory returns up to limit operations that impacted the
// account, ending at the sequence from. A negative from ends at the latest.
func (s *State) QueryAccountHistory(accountID database.AccountID, from int64, limit int) ([]opstore.Entry, error) {
	if s.opstore == nil {
		return nil, ErrNoHistory
	}

	return s.opstore.Account(accountID, from, limit)
}
