package avltree

const needBalanceHeight = 2

type Item interface {
	Subtraction(current Item) int
	Key() interface{}
	Value() interface{}
}

type node struct {
	item   Item
	left   *node
	right  *node
	height int
}

func (n *node) insertLeft(item Item) *node {
	root := n
	n.left = n.addToSubTree(n.left, item)
	if n.heightDiff() == needBalanceHeight {
		if item.Subtraction(n.left.item) <= 0 {
			root = n.rotateRight()
		} else {
			root = n.rotateLeftThenRight()
		}
	}
	return root
}

func (n *node) insertRight(item Item) *node {
	root := n
	n.right = n.addToSubTree(n.right, item)
	if n.heightDiff() == -needBalanceHeight {
		if item.Subtraction(n.right.item) > 0 {
			root = n.rotateLeft()
		} else {
			root = n.rotateRightThenLeft()
		}
	}
	return root
}

func (n *node) add(item Item) *node {
	var root *node
	if item.Subtraction(n.item) <= 0 {
		root = n.insertLeft(item)
	} else {
		root = n.insertRight(item)
	}
	root.computeHeight()
	return root
}

func (n *node) removeFromParent(parent *node, item Item) *node {
	if parent != nil {
		return parent.remove(item)
	}
	return nil
}

func (n *node) remove(item Item) *node {
	root := n
	switch {
	case item.Subtraction(n.item) == 0:
		if n.left == nil {
			return n.right
		}

		child := n.left
		for child.right != nil {
			child = child.right
		}
		childItem := child.item
		n.left = n.removeFromParent(n.left, childItem)
		n.item = childItem
		if n.heightDiff() == -needBalanceHeight {
			root = n.rebalanceLeft()
		}
	case item.Subtraction(n.item) < 0:
		n.left = n.removeFromParent(n.left, item)
		if n.heightDiff() == -needBalanceHeight {
			root = n.rebalanceLeft()
		}
	default:
		n.right = n.removeFromParent(n.right, item)
		if n.heightDiff() == needBalanceHeight {
			root = n.rebalanceRight()
		}
	}
	root.computeHeight()
	return root
}

func (n *node) rebalanceLeft() *node {
	if n.right.heightDiff() > 0 {
		return n.rotateRightThenLeft()
	}
	return n.rotateLeft()
}

func (n *node) rebalanceRight() *node {
	if n.left.heightDiff() < 0 {
		return n.rotateLeftThenRight()
	}
	return n.rotateRight()
}

func (n *node) rotateRight() *node {
	root := n.left
	grandson := root.right
	n.left = grandson
	root.right = n
	n.computeHeight()
	root.computeHeight()
	return root
}

func (n *node) rotateLeft() *node {
	root := n.right
	grandson := root.left
	n.right = grandson
	root.left = n
	n.computeHeight()
	root.computeHeight()
	return root
}

func (n *node) rotateRightThenLeft() *node {
	n.right = n.right.rotateRight()
	return n.rotateLeft()
}

func (n *node) rotateLeftThenRight() *node {
	n.left = n.left.rotateLeft()
	return n.rotateRight()
}

func (n *node) addToSubTree(parent *node, item Item) *node {
	if parent == nil {
		return &node{item: item}
	}

	return parent.add(item)
}

func (n *node) computeHeight() {
	height := -1
	if n.left != nil && n.left.height > height {
		height = n.left.height
	}
	if n.right != nil && n.right.height > height {
		height = n.right.height
	}
	n.height = height + 1
}

func (n *node) heightDiff() int {
	leftTarget, rightTarget := 0, 0
	if n.left != nil {
		leftTarget = 1 + n.left.height
	}
	if n.right != nil {
		rightTarget = 1 + n.right.height
	}
	return leftTarget - rightTarget
}

func (n *node) points(ord order) []Item {
	items := make([]Item, 0, 1)
	n.walk(ord, func(item Item) bool {
		items = append(items, item)
		return true
	})
	return items
}

func (n *node) filter(fn FilterFn) []Item {
	var items []Item
	n.walk(orderAsc, func(item Item) bool {
		if fn(item) {
			items = append(items, item)
		}
		return true
	})
	return items
}

func (n *node) walk(ord order, fn func(item Item) bool) bool {
	first, second := n.left, n.right
	if ord == orderDesc {
		first, second = second, first
	}
	if first != nil && !first.walk(ord, fn) {
		return false
	}
	if !fn(n.item) {
		return false
	}
	if second != nil && !second.walk(ord, fn) {
		return false
	}
	return true
}
