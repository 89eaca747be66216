package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/driftwood-mud/engine/internal/game/outbound"
	"github.com/driftwood-mud/engine/internal/game/player"
	"github.com/driftwood-mud/engine/internal/game/shop"
)

// shopHere resolves the vendor in the player's room, emitting the standard
// refusal when there is none.
func (e *Engine) shopHere(st *player.State) (*shop.Definition, bool) {
	def, ok := e.shops.At(st.RoomID)
	if !ok {
		e.push(outbound.Text(st.Session, "There is no shop here."))
		e.prompt(st.Session)
		return nil, false
	}
	return def, true
}

func (e *Engine) cmdShopList(st *player.State) {
	sid := st.Session
	def, ok := e.shopHere(st)
	if !ok {
		return
	}
	e.push(outbound.Info(sid, def.Name+" offers:"))
	for _, kw := range def.Stock {
		tmpl, ok := e.world.ItemTemplate(kw)
		if !ok {
			e.log.Warn("shop stocks unknown item", zap.String("shop", def.Name), zap.String("item", kw))
			continue
		}
		price := e.cfg.Economy.BuyPrice(tmpl.BasePrice)
		e.push(outbound.Text(sid, fmt.Sprintf("  %-22s %d gold", tmpl.DisplayName, price)))
	}
	e.prompt(sid)
}

func (e *Engine) cmdBuy(st *player.State, kw string) {
	sid := st.Session
	def, ok := e.shopHere(st)
	if !ok {
		return
	}
	if !def.Sells(kw) {
		e.push(outbound.Text(sid, "This shop doesn't sell that."))
		e.prompt(sid)
		return
	}
	tmpl, ok := e.world.ItemTemplate(kw)
	if !ok {
		e.push(outbound.Text(sid, "This shop doesn't sell that."))
		e.prompt(sid)
		return
	}
	price := e.cfg.Economy.BuyPrice(tmpl.BasePrice)
	if st.Gold < price {
		e.push(outbound.Error(sid, "You can't afford that."))
		e.prompt(sid)
		return
	}
	st.Gold -= price
	st.Dirty = true
	inst := e.items.MintToInventory(tmpl, sid)
	e.push(outbound.Text(sid, fmt.Sprintf("You buy %s for %d gold.", indef(inst.DisplayName()), price)))
	e.prompt(sid)
}

func (e *Engine) cmdSell(st *player.State, kw string) {
	sid := st.Session
	if _, ok := e.shopHere(st); !ok {
		return
	}
	inst, ok := e.items.FindInInventory(sid, kw)
	if !ok {
		e.push(outbound.Error(sid, "You aren't carrying that."))
		e.prompt(sid)
		return
	}
	price := e.cfg.Economy.SellPrice(inst.Tmpl.BasePrice)
	if inst.Tmpl.BasePrice <= 0 || price <= 0 {
		e.push(outbound.Text(sid, "The shopkeeper sniffs: worthless."))
		e.prompt(sid)
		return
	}
	name := inst.DisplayName()
	if err := e.items.Destroy(inst); err != nil {
		e.log.Error("destroying sold item", zap.String("item", string(inst.ID)), zap.Error(err))
		e.push(outbound.Error(sid, "Internal error."))
		e.prompt(sid)
		return
	}
	st.Gold += price
	st.Dirty = true
	e.push(outbound.Text(sid, fmt.Sprintf("You sell the %s for %d gold.", name, price)))
	e.prompt(sid)
}

func (e *Engine) cmdBalance(st *player.State) {
	e.push(outbound.Text(st.Session, fmt.Sprintf("You have %d gold.", st.Gold)))
	e.prompt(st.Session)
}
