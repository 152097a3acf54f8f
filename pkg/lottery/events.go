package lottery

import (
	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/types"
)

// TicketBought is emitted when account enters a round.
func TicketBought(account types.AccountID) abi.Event {
	return abi.NewEvent(abi.EventTicketBought).
		AddIndexedAttribute(abi.AttributeKeyAccount, []byte(account))
}

// PrizeAwarded is emitted when a round is settled in account's favor.
func PrizeAwarded(account types.AccountID, prize types.Amount) abi.Event {
	return abi.NewEvent(abi.EventPrizeAwarded).
		AddIndexedAttribute(abi.AttributeKeyAccount, []byte(account)).
		AddStringAttribute(abi.AttributeKeyAmount, prize.String())
}

// NoParticipants is emitted when a round is closed with nobody in it.
func NoParticipants() abi.Event {
	return abi.NewEvent(abi.EventNoParticipants)
}
